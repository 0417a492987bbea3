package models

import "time"

// Periodo es un ciclo académico semestral identificado por su etiqueta "YYYY-C".
type Periodo struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Anio        int       `json:"anio" gorm:"not null"`
	Ciclo       int       `json:"ciclo" gorm:"not null"` // 1 | 2
	Etiqueta    string    `json:"etiqueta" gorm:"size:10;uniqueIndex;not null"`
	FechaInicio time.Time `json:"fecha_inicio" gorm:"type:date"`
	FechaFin    time.Time `json:"fecha_fin" gorm:"type:date"`
}

func (Periodo) TableName() string { return "periodo" }
