package ingest

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

// ProcessLista ingesta una lista de asistencia: vincula alumnos al
// grupo que el encabezado de la hoja identifica. El grupo debe existir
// desde una carga estructural o de horarios previa; aquí nunca se crea.
func (o *Orchestrator) ProcessLista(ctx context.Context, archivo *models.ArchivoCargado) (*Summary, error) {
	if err := o.Audit.Append(archivo.ID, models.EtapaParse, models.AuditInicio, "inicia parseo de lista"); err != nil {
		return nil, err
	}
	doc, err := o.Sheets.Parse(ctx, archivo.StoragePath)
	if err != nil {
		return nil, o.etapaParseError(archivo.ID, err)
	}
	if err := o.Audit.Appendf(archivo.ID, models.EtapaParse, models.AuditOK,
		"%d filas extraídas (materia %q grupo %q)", len(doc.Rows), doc.Meta.NombreMateria, doc.Meta.ClaveGrupo); err != nil {
		return nil, err
	}

	return o.correrIngesta(archivo.ID, archivo.Tipo, func(tx *gorm.DB) (*Summary, error) {
		return o.ingestLista(archivo.ID, tx, doc)
	})
}

func (o *Orchestrator) ingestLista(archivoID uint, tx *gorm.DB, doc *extract.SheetDoc) (*Summary, error) {
	resumen := &Summary{}
	res := resolver.New(tx)

	periodo, err := res.ResolverPeriodo(doc.Meta.PeriodoEtiqueta)
	if err != nil {
		return resumen, err
	}

	materiaID, err := buscarMateria(tx, doc.Meta)
	if err != nil {
		return resumen, err
	}
	grupoID, err := res.BuscarGrupo(materiaID, periodo.ID, doc.Meta.ClaveGrupo)
	if err != nil {
		// padre requerido ausente: falla de lote, no advertencia
		return resumen, err
	}

	for i, fila := range doc.Rows {
		if err := o.procesarFilaLista(tx, res, archivoID, grupoID, periodo.ID, fila, resumen); err != nil {
			if esFallaDeFila(err) {
				resumen.advertir("fila %d descartada: %v", fila.RowIndex, err)
				continue
			}
			return resumen, err
		}
		if err := o.checkpoint(archivoID, i+1, len(doc.Rows)); err != nil {
			return resumen, err
		}
	}
	return resumen, nil
}

// buscarMateria localiza la materia del encabezado sin crearla: por
// código normalizado si viene, por nombre en su defecto.
func buscarMateria(tx *gorm.DB, meta extract.SheetMeta) (uint, error) {
	var m models.Materia
	var err error
	switch {
	case meta.CodigoMateria != "":
		cod := resolver.NormalizarCodigoMateria(meta.CodigoMateria)
		err = tx.Where("codigo = ?", cod).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NewNotFoundError("materia", cod)
		}
	case meta.NombreMateria != "":
		nom := resolver.Colapsar(meta.NombreMateria)
		err = tx.Where("LOWER(nombre) = ?", strings.ToLower(nom)).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NewNotFoundError("materia", nom)
		}
	default:
		return 0, apperr.NewValidationError("materia", 0, "la lista no identifica materia")
	}
	if err != nil {
		return 0, apperr.NewPersistenceError("buscar materia", err)
	}
	return m.ID, nil
}

func (o *Orchestrator) procesarFilaLista(tx *gorm.DB, res *resolver.Resolver, archivoID, grupoID, periodoID uint, fila extract.SheetRow, resumen *Summary) error {
	expediente := fila.Campo("expediente")
	if expediente == "" {
		return apperr.NewValidationError("expediente", fila.RowIndex, "campo requerido vacío")
	}

	alumnoID, err := res.ResolverAlumno(resolver.AlumnoInput{
		Expediente:     expediente,
		Matricula:      fila.Campo("matricula"),
		NombreCompleto: fila.Campo("nombre"),
	})
	if err != nil {
		return err
	}

	if err := asegurarInscripcion(tx, alumnoID, periodoID); err != nil {
		return err
	}

	var vinculo models.AlumnoGrupo
	err = tx.Where("alumno_id = ? AND grupo_id = ?", alumnoID, grupoID).First(&vinculo).Error
	if err == nil {
		resumen.SinCambio++
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewPersistenceError("buscar vínculo alumno-grupo", err)
	}

	vinculo = models.AlumnoGrupo{
		AlumnoID:  alumnoID,
		GrupoID:   grupoID,
		ArchivoID: &archivoID,
		Fuente:    models.FuenteRosterFile,
	}
	if err := tx.Create(&vinculo).Error; err != nil {
		return apperr.NewPersistenceError("crear vínculo alumno-grupo", err)
	}
	resumen.Agregados++
	return nil
}
