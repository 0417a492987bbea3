package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// FileRegistry registra artefactos subidos, deduplica por hash de
// contenido y controla el estado de procesamiento del archivo.
type FileRegistry struct {
	db        *gorm.DB
	audit     *AuditTrail
	uploadDir string
}

func NewFileRegistry(db *gorm.DB, audit *AuditTrail, uploadDir string) *FileRegistry {
	return &FileRegistry{db: db, audit: audit, uploadDir: uploadDir}
}

// UploadMeta describe el artefacto que se está registrando.
type UploadMeta struct {
	Tipo          string
	NombreArchivo string
	MimeType      string
	Usuario       string
	// Force pide re-ingestar aunque el contenido ya esté registrado.
	Force bool
}

// RegisterResult es el resultado de registrar un artefacto.
type RegisterResult struct {
	Archivo *models.ArchivoCargado
	// Dedup indica que el contenido ya estaba registrado y no se creó
	// fila nueva; el llamador no debe re-parsear.
	Dedup bool
}

// Register calcula el hash sha256 del contenido, guarda el archivo en
// disco y crea el ArchivoCargado en estado PENDIENTE. La restricción de
// unicidad sobre el hash es la verdadera guardia contra duplicados: se
// inserta directo y una violación de unicidad se resuelve releyendo la
// fila ganadora, de modo que dos subidas idénticas concurrentes no
// producen dos registros.
func (r *FileRegistry) Register(contenido []byte, meta UploadMeta) (*RegisterResult, error) {
	if !models.TipoArchivoValido(meta.Tipo) {
		return nil, apperr.NewValidationError("tipo", 0, fmt.Sprintf("tipo de archivo desconocido %q", meta.Tipo))
	}

	suma := sha256.Sum256(contenido)
	hash := hex.EncodeToString(suma[:])

	storedName := uuid.NewString() + filepath.Ext(meta.NombreArchivo)
	storagePath := filepath.Join(r.uploadDir, storedName)

	if err := os.MkdirAll(r.uploadDir, 0o755); err != nil {
		return nil, apperr.NewPersistenceError("crear directorio de subidas", err)
	}
	if err := os.WriteFile(storagePath, contenido, 0o644); err != nil {
		return nil, apperr.NewPersistenceError("guardar archivo", err)
	}

	rec := models.ArchivoCargado{
		Tipo:          meta.Tipo,
		NombreArchivo: meta.NombreArchivo,
		StoredName:    storedName,
		MimeType:      meta.MimeType,
		SizeBytes:     int64(len(contenido)),
		StoragePath:   storagePath,
		Hash:          hash,
		Usuario:       meta.Usuario,
		EstadoProceso: models.EstadoPendiente,
	}
	err := r.insertar(&rec)
	if err == nil {
		if err := r.audit.Appendf(rec.ID, models.EtapaUpload, models.AuditOK,
			"archivo %q registrado (%d bytes)", meta.NombreArchivo, rec.SizeBytes); err != nil {
			return nil, err
		}
		return &RegisterResult{Archivo: &rec}, nil
	}

	_ = os.Remove(storagePath)
	var dup *apperr.DuplicateError
	if !errors.As(err, &dup) {
		return nil, err
	}

	// El hash ya existe: otro registro ganó. Releer y deduplicar.
	existente, err := r.Buscar(dup.ArchivoID)
	if err != nil {
		return nil, err
	}

	if meta.Force {
		// Re-ingesta forzada: se reutiliza el registro existente y el
		// llamador vuelve a correr el pipeline sobre él.
		if err := r.audit.Appendf(existente.ID, models.EtapaUpload, models.AuditOK,
			"re-ingesta forzada de %q (hash %s)", meta.NombreArchivo, hash[:12]); err != nil {
			return nil, err
		}
		return &RegisterResult{Archivo: existente}, nil
	}

	if err := r.audit.Appendf(existente.ID, models.EtapaUpload, models.AuditOK,
		"duplicado: el contenido de %q ya fue registrado como archivo %d", meta.NombreArchivo, existente.ID); err != nil {
		return nil, err
	}
	return &RegisterResult{Archivo: existente, Dedup: true}, nil
}

// insertar crea la fila del archivo. Una violación de la unicidad del
// hash se traduce a DuplicateError con la fila ganadora, para que el
// llamador corte el flujo sin re-parsear.
func (r *FileRegistry) insertar(rec *models.ArchivoCargado) error {
	err := r.db.Create(rec).Error
	if err == nil {
		return nil
	}
	if !esViolacionUnicidad(err) {
		return apperr.NewPersistenceError("registrar archivo", err)
	}
	var existente models.ArchivoCargado
	if err := r.db.Where("hash = ?", rec.Hash).First(&existente).Error; err != nil {
		return apperr.NewPersistenceError("releer archivo duplicado", err)
	}
	return &apperr.DuplicateError{Hash: rec.Hash, ArchivoID: existente.ID}
}

// MarkEstado es la única mutación de estado permitida tras la creación.
// Las transiciones son monótonas: nunca se regresa a PENDIENTE.
func (r *FileRegistry) MarkEstado(archivoID uint, estado string) error {
	if estado != models.EstadoCompletado && estado != models.EstadoError {
		return apperr.NewValidationError("estado_proceso", 0, fmt.Sprintf("transición a %q no permitida", estado))
	}
	res := r.db.Model(&models.ArchivoCargado{}).
		Where("id = ?", archivoID).
		Update("estado_proceso", estado)
	if res.Error != nil {
		return apperr.NewPersistenceError("actualizar estado", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFoundError("archivo", fmt.Sprint(archivoID))
	}
	return nil
}

// Buscar devuelve el archivo por id.
func (r *FileRegistry) Buscar(archivoID uint) (*models.ArchivoCargado, error) {
	var a models.ArchivoCargado
	err := r.db.First(&a, archivoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFoundError("archivo", fmt.Sprint(archivoID))
	}
	if err != nil {
		return nil, apperr.NewPersistenceError("buscar archivo", err)
	}
	return &a, nil
}

// esViolacionUnicidad reconoce violaciones de restricción única tanto
// con TranslateError (gorm.ErrDuplicatedKey) como por el texto del
// driver (postgres y sqlite en pruebas).
func esViolacionUnicidad(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
