package models

import "time"

// Alumno. La matrícula y el expediente son identificadores únicos;
// el expediente es la llave natural para la resolución de entidades.
type Alumno struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Matricula       string     `json:"matricula" gorm:"size:20;uniqueIndex;not null"`
	Expediente      string     `json:"expediente" gorm:"size:20;uniqueIndex;not null"`
	Nombre          string     `json:"nombre" gorm:"size:120;not null"`
	ApellidoPaterno string     `json:"apellido_paterno" gorm:"size:120;not null"`
	ApellidoMaterno string     `json:"apellido_materno" gorm:"size:120"`
	Sexo            string     `json:"sexo" gorm:"size:1"`
	FechaNacimiento *time.Time `json:"fecha_nacimiento" gorm:"type:date"`
	EstadoAcademico string     `json:"estado_academico" gorm:"size:30"`
	PlanEstudioID   *uint      `json:"plan_estudio_id"`
	TotalCreditos   int        `json:"total_creditos"`
	Promedio        float64    `json:"promedio"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	PlanEstudio *PlanEstudio `json:"-" gorm:"foreignKey:PlanEstudioID"`
}

func (Alumno) TableName() string { return "alumno" }
