package models

import "time"

// Tipos de archivo que acepta el pipeline de ingesta.
const (
	TipoEstructura       = "ESTRUCTURA"
	TipoHorarioISI       = "HORARIO_ISI"
	TipoHorarioPrelistas = "HORARIO_PRELISTAS"
	TipoListaAsistencia  = "LISTA_ASISTENCIA"
	TipoKardex           = "KARDEX"
	TipoPlanEstudio      = "PLAN_ESTUDIO"
)

// Estados de procesamiento de un archivo cargado.
const (
	EstadoPendiente  = "PENDIENTE"
	EstadoCompletado = "COMPLETADO"
	EstadoError      = "ERROR"
)

// TipoArchivoValido reports whether tipo is one of the accepted artifact types.
func TipoArchivoValido(tipo string) bool {
	switch tipo {
	case TipoEstructura, TipoHorarioISI, TipoHorarioPrelistas,
		TipoListaAsistencia, TipoKardex, TipoPlanEstudio:
		return true
	}
	return false
}

// ArchivoCargado registra cada artefacto físico subido al sistema.
// El hash del contenido es la llave de deduplicación.
type ArchivoCargado struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Tipo          string    `json:"tipo" gorm:"size:30;not null;index"`
	NombreArchivo string    `json:"nombre_archivo" gorm:"size:255;not null"`
	StoredName    string    `json:"stored_name" gorm:"size:255;not null"`
	MimeType      string    `json:"mime_type" gorm:"size:100"`
	SizeBytes     int64     `json:"size_bytes" gorm:"not null"`
	StoragePath   string    `json:"storage_path" gorm:"size:500"`
	Hash          string    `json:"hash" gorm:"size:64;uniqueIndex;not null"`
	Usuario       string    `json:"usuario" gorm:"size:120"`
	Fecha         time.Time `json:"fecha" gorm:"autoCreateTime"`
	EstadoProceso string    `json:"estado_proceso" gorm:"size:20;not null;default:PENDIENTE"`
}

func (ArchivoCargado) TableName() string { return "archivo_cargado" }
