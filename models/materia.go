package models

// Clasificación de una materia dentro de su plan.
const (
	MateriaObligatoria = "OBLIGATORIA"
	MateriaOptativa    = "OPTATIVA"
)

// Materia es la definición de un curso; el código normalizado es único.
type Materia struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Codigo        string `json:"codigo" gorm:"size:20;uniqueIndex;not null"`
	Nombre        string `json:"nombre" gorm:"size:200;not null"`
	Creditos      int    `json:"creditos"`
	Tipo          string `json:"tipo" gorm:"size:20;not null;default:OBLIGATORIA"`
	PlanEstudioID *uint  `json:"plan_estudio_id"`

	PlanEstudio *PlanEstudio `json:"-" gorm:"foreignKey:PlanEstudioID"`
}

func (Materia) TableName() string { return "materia" }
