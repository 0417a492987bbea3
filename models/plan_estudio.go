package models

// PlanEstudio se busca por el compuesto (nombre, version).
type PlanEstudio struct {
	ID                 uint   `json:"id" gorm:"primaryKey"`
	Nombre             string `json:"nombre" gorm:"size:200;not null;uniqueIndex:uq_plan_nombre_version"`
	Version            string `json:"version" gorm:"size:30;not null;uniqueIndex:uq_plan_nombre_version"`
	TotalCreditos      int    `json:"total_creditos"`
	SemestresSugeridos int    `json:"semestres_sugeridos"`
}

func (PlanEstudio) TableName() string { return "plan_estudio" }
