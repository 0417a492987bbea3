package models

// Kardex es la calificación/estatus de un alumno en una materia de un
// periodo. Unicidad lógica sobre (alumno, materia, periodo).
type Kardex struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	AlumnoID     uint     `json:"alumno_id" gorm:"not null;uniqueIndex:uq_kardex_alumno_materia_periodo"`
	MateriaID    uint     `json:"materia_id" gorm:"not null;uniqueIndex:uq_kardex_alumno_materia_periodo"`
	PeriodoID    uint     `json:"periodo_id" gorm:"not null;uniqueIndex:uq_kardex_alumno_materia_periodo"`
	Calificacion *float64 `json:"calificacion"`
	Estatus      string   `json:"estatus" gorm:"size:20"` // APROBADA | REPROBADA | CURSANDO | ...

	Alumno  *Alumno  `json:"-" gorm:"foreignKey:AlumnoID"`
	Materia *Materia `json:"-" gorm:"foreignKey:MateriaID"`
	Periodo *Periodo `json:"-" gorm:"foreignKey:PeriodoID"`
}

func (Kardex) TableName() string { return "kardex" }
