package models

// Roles docentes dentro de un grupo.
const (
	RolDocenteTitular = "TITULAR"
)

// Profesor. NumEmpleado puede faltar en las fuentes; en ese caso el
// resolutor crea un registro provisional con correo sintetizado y una
// identidad de acceso auto-provisionada.
type Profesor struct {
	ID              uint    `json:"id" gorm:"primaryKey"`
	Nombre          string  `json:"nombre" gorm:"size:120;not null"`
	ApellidoPaterno string  `json:"apellido_paterno" gorm:"size:120;not null"`
	ApellidoMaterno string  `json:"apellido_materno" gorm:"size:120"`
	Correo          string  `json:"correo" gorm:"size:150"`
	NumEmpleado     *string `json:"num_empleado" gorm:"size:20;uniqueIndex"`
	UsuarioID       *uint   `json:"usuario_id"`
	Provisional     bool    `json:"provisional" gorm:"not null;default:false"`

	Usuario *Usuario `json:"-" gorm:"foreignKey:UsuarioID"`
}

func (Profesor) TableName() string { return "profesor" }

// AsignacionProfesor liga un profesor a un grupo con un rol docente.
type AsignacionProfesor struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	GrupoID    uint   `json:"grupo_id" gorm:"not null;uniqueIndex:uq_asignacion_grupo_profesor"`
	ProfesorID uint   `json:"profesor_id" gorm:"not null;uniqueIndex:uq_asignacion_grupo_profesor"`
	RolDocente string `json:"rol_docente" gorm:"size:20;not null;default:TITULAR"`

	Grupo    *Grupo    `json:"-" gorm:"foreignKey:GrupoID"`
	Profesor *Profesor `json:"-" gorm:"foreignKey:ProfesorID"`
}

func (AsignacionProfesor) TableName() string { return "asignacion_profesor" }
