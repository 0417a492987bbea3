package models

// Inscripcion registra que un alumno cursó (o cursa) un periodo.
type Inscripcion struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AlumnoID  uint   `json:"alumno_id" gorm:"not null;uniqueIndex:uq_inscripcion_alumno_periodo"`
	PeriodoID uint   `json:"periodo_id" gorm:"not null;uniqueIndex:uq_inscripcion_alumno_periodo"`
	Estatus   string `json:"estatus" gorm:"size:20;not null;default:ACTIVA"`

	Alumno  *Alumno  `json:"-" gorm:"foreignKey:AlumnoID"`
	Periodo *Periodo `json:"-" gorm:"foreignKey:PeriodoID"`
}

func (Inscripcion) TableName() string { return "inscripcion" }
