package models

// Horario es una franja de clase de un grupo. La identidad de una franja
// no es estable entre ingestas: el reconciliador reemplaza el conjunto
// completo de franjas de un grupo en cada carga de horarios.
type Horario struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	GrupoID    uint   `json:"grupo_id" gorm:"not null;index"`
	DiaSemana  string `json:"dia_semana" gorm:"size:10;not null"` // LUN..SAB
	HoraInicio string `json:"hora_inicio" gorm:"size:5;not null"` // HH:MM
	HoraFin    string `json:"hora_fin" gorm:"size:5;not null"`
	Aula       string `json:"aula" gorm:"size:50"`

	Grupo *Grupo `json:"-" gorm:"foreignKey:GrupoID"`
}

func (Horario) TableName() string { return "horario" }
