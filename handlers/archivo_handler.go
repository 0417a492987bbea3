package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/saulfer1109/sistema-PDS2-sub000/config"
	"github.com/saulfer1109/sistema-PDS2-sub000/database"
	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/ingest"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// ArchivoHandler expone la superficie HTTP del pipeline de ingesta:
// subir extractos, listar archivos y leer la línea de tiempo de
// auditoría. La ingesta corre síncrona dentro de la petición.
type ArchivoHandler struct {
	registry *ingest.FileRegistry
	audit    *ingest.AuditTrail
	orq      *ingest.Orchestrator
}

func NewArchivoHandler(cfg *config.Config) *ArchivoHandler {
	audit := ingest.NewAuditTrail(database.DB)
	registry := ingest.NewFileRegistry(database.DB, audit, cfg.UploadDir)
	orq := ingest.NewOrchestrator(
		database.DB, registry, audit,
		&extract.SheetClient{Cmd: cfg.SheetExtractorCmd},
		&extract.PDFClient{Cmd: cfg.PDFExtractorCmd},
		log.Logger,
	)
	return &ArchivoHandler{registry: registry, audit: audit, orq: orq}
}

func leerArchivoForm(c echo.Context, campo string) ([]byte, *multipart.FileHeader, error) {
	fh, err := c.FormFile(campo)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	contenido, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return contenido, fh, nil
}

func (h *ArchivoHandler) registrar(c echo.Context, tipo, campo string) (*ingest.RegisterResult, error) {
	contenido, fh, err := leerArchivoForm(c, campo)
	if err != nil {
		return nil, err
	}
	usuario, _ := c.Get("nombre").(string)
	return h.registry.Register(contenido, ingest.UploadMeta{
		Tipo:          tipo,
		NombreArchivo: fh.Filename,
		MimeType:      fh.Header.Get("Content-Type"),
		Usuario:       usuario,
		Force:         c.FormValue("force") == "true",
	})
}

// POST /archivos/horarios — acepta los campos "isi" y "prelistas";
// cualquiera de los dos puede faltar, pero no ambos.
func (h *ArchivoHandler) SubirHorarios(c echo.Context) error {
	var isi, prelistas *models.ArchivoCargado

	resISI, err := h.registrar(c, models.TipoHorarioISI, "isi")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return responderError(c, err, nil)
	}
	if resISI != nil && !resISI.Dedup {
		isi = resISI.Archivo
	}

	resPre, err := h.registrar(c, models.TipoHorarioPrelistas, "prelistas")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return responderError(c, err, nil)
	}
	if resPre != nil && !resPre.Dedup {
		prelistas = resPre.Archivo
	}

	if resISI == nil && resPre == nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "MISSING_FIELDS"})
	}
	if isi == nil && prelistas == nil {
		// ambos extractos ya estaban registrados
		return c.JSON(http.StatusOK, map[string]any{"dedup": true})
	}

	resumen, err := h.orq.ProcessHorarios(c.Request().Context(), isi, prelistas)
	if err != nil {
		return responderError(c, err, resumen)
	}
	return c.JSON(http.StatusOK, map[string]any{"resumen": resumen})
}

// POST /archivos/:tipo — sube un extracto del tipo dado en el campo
// "archivo" y lo ingesta de inmediato.
func (h *ArchivoHandler) Subir(c echo.Context) error {
	tipo := strings.ToUpper(c.Param("tipo"))
	if !models.TipoArchivoValido(tipo) {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "TIPO_DESCONOCIDO"})
	}

	res, err := h.registrar(c, tipo, "archivo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "MISSING_FIELDS"})
		}
		return responderError(c, err, nil)
	}
	if res.Dedup {
		return c.JSON(http.StatusOK, map[string]any{
			"archivo_id": res.Archivo.ID,
			"dedup":      true,
		})
	}

	resumen, err := h.orq.ProcessArchivo(c.Request().Context(), res.Archivo)
	if err != nil {
		return responderError(c, err, resumen)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"archivo_id": res.Archivo.ID,
		"resumen":    resumen,
	})
}

// GET /archivos?estado=&tipo=
func (h *ArchivoHandler) Listar(c echo.Context) error {
	tx := database.DB.Model(&models.ArchivoCargado{})
	if estado := strings.TrimSpace(c.QueryParam("estado")); estado != "" {
		tx = tx.Where("estado_proceso = ?", strings.ToUpper(estado))
	}
	if tipo := strings.TrimSpace(c.QueryParam("tipo")); tipo != "" {
		tx = tx.Where("tipo = ?", strings.ToUpper(tipo))
	}
	var archivos []models.ArchivoCargado
	if err := tx.Order("fecha DESC, id DESC").Find(&archivos).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, archivos)
}

// GET /archivos/:id/auditoria
func (h *ArchivoHandler) Auditoria(c echo.Context) error {
	id := uint(atoiOr(c.Param("id"), 0))
	if id == 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "ID_INVALIDO"})
	}
	if _, err := h.registry.Buscar(id); err != nil {
		return responderError(c, err, nil)
	}
	eventos, err := h.audit.Timeline(id)
	if err != nil {
		return responderError(c, err, nil)
	}
	return c.JSON(http.StatusOK, eventos)
}

// responderError mapea la taxonomía de errores del pipeline a códigos
// HTTP e incluye los conteos parciales ya calculados cuando existen.
func responderError(c echo.Context, err error, resumen *ingest.Summary) error {
	cuerpo := map[string]any{"error": err.Error()}
	if resumen != nil {
		cuerpo["resumen"] = resumen
	}
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return c.JSON(http.StatusBadRequest, cuerpo)
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusUnprocessableEntity, cuerpo)
	case errors.Is(err, apperr.ErrTransient):
		return c.JSON(http.StatusBadGateway, cuerpo)
	default:
		return c.JSON(http.StatusInternalServerError, cuerpo)
	}
}
