package models

import "time"

// Etapas del pipeline auditadas por archivo.
const (
	EtapaUpload  = "UPLOAD"
	EtapaParse   = "PARSE"
	EtapaIngesta = "INGESTA"
)

// Estados posibles de un evento de auditoría.
const (
	AuditInicio = "INICIO"
	AuditOK     = "OK"
	AuditWarn   = "WARN"
	AuditError  = "ERROR"
)

// AuditoriaCarga es la bitácora append-only de transiciones de etapa.
// Nunca se actualiza ni se borra; puede haber varios eventos por etapa
// (p. ej. checkpoints de avance durante ingestas grandes).
type AuditoriaCarga struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ArchivoID uint      `json:"archivo_id" gorm:"not null;index"`
	Etapa     string    `json:"etapa" gorm:"size:10;not null"`
	Estado    string    `json:"estado" gorm:"size:10;not null"`
	Detalle   string    `json:"detalle" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime"`

	Archivo *ArchivoCargado `json:"-" gorm:"foreignKey:ArchivoID"`
}

func (AuditoriaCarga) TableName() string { return "auditoria_cargas" }
