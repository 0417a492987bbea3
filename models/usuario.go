package models

import "time"

// Roles de acceso al sistema.
const (
	RolAdmin       = "ADMIN"
	RolCoordinador = "COORDINADOR"
	RolProfesor    = "PROFESOR"
)

type Usuario struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Password  string    `json:"-" gorm:"not null"` // bcrypt hash
	Rol       string    `json:"rol" gorm:"size:20;not null"`
	Nombre    string    `json:"nombre" gorm:"size:120"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Usuario) TableName() string { return "usuario" }
