package ingest

import (
	"fmt"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// AuditTrail escribe la bitácora append-only de etapas por archivo.
// Una falla al insertar se propaga siempre; la bitácora no se degrada
// en silencio.
type AuditTrail struct {
	db *gorm.DB
}

func NewAuditTrail(db *gorm.DB) *AuditTrail {
	return &AuditTrail{db: db}
}

// Append inserta un evento. Sin lógica de negocio: solo el insert.
func (a *AuditTrail) Append(archivoID uint, etapa, estado, detalle string) error {
	ev := models.AuditoriaCarga{
		ArchivoID: archivoID,
		Etapa:     etapa,
		Estado:    estado,
		Detalle:   detalle,
	}
	if err := a.db.Create(&ev).Error; err != nil {
		return apperr.NewPersistenceError("insertar auditoría", err)
	}
	return nil
}

// Appendf es Append con formato.
func (a *AuditTrail) Appendf(archivoID uint, etapa, estado, formato string, args ...any) error {
	return a.Append(archivoID, etapa, estado, fmt.Sprintf(formato, args...))
}

// Timeline reconstruye la línea de tiempo de un archivo, ordenada por
// timestamp y, a igual timestamp, por id de inserción.
func (a *AuditTrail) Timeline(archivoID uint) ([]models.AuditoriaCarga, error) {
	var eventos []models.AuditoriaCarga
	err := a.db.Where("archivo_id = ?", archivoID).
		Order("timestamp ASC, id ASC").
		Find(&eventos).Error
	if err != nil {
		return nil, apperr.NewPersistenceError("leer auditoría", err)
	}
	return eventos, nil
}
