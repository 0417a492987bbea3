package models

// Grupo es una oferta de materia en un periodo (una "sección").
// Provisional marca grupos cuya clave fue sintetizada por el resolutor
// porque la fuente no traía identificador de sección.
type Grupo struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	MateriaID   uint   `json:"materia_id" gorm:"not null;uniqueIndex:uq_grupo_materia_periodo_clave"`
	PeriodoID   uint   `json:"periodo_id" gorm:"not null;uniqueIndex:uq_grupo_materia_periodo_clave"`
	ClaveGrupo  string `json:"clave_grupo" gorm:"size:30;not null;uniqueIndex:uq_grupo_materia_periodo_clave"`
	Cupo        int    `json:"cupo"`
	Provisional bool   `json:"provisional" gorm:"not null;default:false"`

	Materia *Materia `json:"-" gorm:"foreignKey:MateriaID"`
	Periodo *Periodo `json:"-" gorm:"foreignKey:PeriodoID"`
}

func (Grupo) TableName() string { return "grupo" }
