package models

// Procedencia de un vínculo alumno-grupo.
const (
	FuenteManual     = "MANUAL"
	FuenteRosterFile = "ROSTER_FILE"
)

// AlumnoGrupo vincula un alumno con un grupo. ArchivoID guarda la
// procedencia cuando el vínculo nació de una lista de asistencia.
type AlumnoGrupo struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AlumnoID  uint   `json:"alumno_id" gorm:"not null;uniqueIndex:uq_alumno_grupo"`
	GrupoID   uint   `json:"grupo_id" gorm:"not null;uniqueIndex:uq_alumno_grupo"`
	ArchivoID *uint  `json:"archivo_id"`
	Fuente    string `json:"fuente" gorm:"size:20;not null;default:MANUAL"`

	Alumno  *Alumno         `json:"-" gorm:"foreignKey:AlumnoID"`
	Grupo   *Grupo          `json:"-" gorm:"foreignKey:GrupoID"`
	Archivo *ArchivoCargado `json:"-" gorm:"foreignKey:ArchivoID"`
}

func (AlumnoGrupo) TableName() string { return "alumno_grupo" }
