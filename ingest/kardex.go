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

// ProcessKardex ingesta el kardex de un alumno extraído de PDF.
// Política atómica: todas las escrituras del archivo van en una sola
// transacción y una falla revierte todo.
func (o *Orchestrator) ProcessKardex(ctx context.Context, archivo *models.ArchivoCargado) (*Summary, error) {
	if err := o.Audit.Append(archivo.ID, models.EtapaParse, models.AuditInicio, "inicia extracción de kardex"); err != nil {
		return nil, err
	}
	res, err := o.PDF.Extract(ctx, archivo.StoragePath)
	if err != nil {
		return nil, o.etapaParseError(archivo.ID, err)
	}
	if res.Kardex == nil {
		return nil, o.etapaParseError(archivo.ID,
			&apperr.TransientError{Detalle: "el extractor no devolvió un kardex"})
	}
	doc := res.Kardex
	if err := o.Audit.Appendf(archivo.ID, models.EtapaParse, models.AuditOK,
		"kardex de %q con %d renglones", doc.Matricula, len(doc.Entradas)); err != nil {
		return nil, err
	}

	return o.correrIngesta(archivo.ID, archivo.Tipo, func(tx *gorm.DB) (*Summary, error) {
		return ingestKardex(tx, doc)
	})
}

func ingestKardex(tx *gorm.DB, doc *extract.KardexDoc) (*Summary, error) {
	resumen := &Summary{}
	res := resolver.New(tx)

	var planID *uint
	if doc.PlanNombre != "" {
		id, err := res.ResolverPlan(doc.PlanNombre, doc.PlanVersion, 0, 0)
		if err != nil {
			return resumen, err
		}
		planID = &id
	}

	alumnoID, err := res.ResolverAlumno(resolver.AlumnoInput{
		Expediente:     doc.Expediente,
		Matricula:      doc.Matricula,
		NombreCompleto: doc.NombreCompleto,
		PlanEstudioID:  planID,
		TotalCreditos:  doc.TotalCreditos,
		Promedio:       doc.Promedio,
	})
	if err != nil {
		return resumen, err
	}

	// los totales del kardex son autoritativos para el alumno
	if err := actualizarTotalesAlumno(tx, alumnoID, doc); err != nil {
		return resumen, err
	}

	for _, entrada := range doc.Entradas {
		if err := procesarEntradaKardex(tx, res, alumnoID, planID, entrada, resumen); err != nil {
			// dominio transaccional: cualquier falla aborta el lote
			return resumen, err
		}
	}
	return resumen, nil
}

func actualizarTotalesAlumno(tx *gorm.DB, alumnoID uint, doc *extract.KardexDoc) error {
	var a models.Alumno
	if err := tx.First(&a, alumnoID).Error; err != nil {
		return apperr.NewPersistenceError("leer alumno", err)
	}
	updates := map[string]any{}
	if doc.TotalCreditos != 0 && doc.TotalCreditos != a.TotalCreditos {
		updates["total_creditos"] = doc.TotalCreditos
	}
	if doc.Promedio != 0 && doc.Promedio != a.Promedio {
		updates["promedio"] = doc.Promedio
	}
	if len(updates) == 0 {
		return nil
	}
	if err := tx.Model(&a).Updates(updates).Error; err != nil {
		return apperr.NewPersistenceError("actualizar totales del alumno", err)
	}
	return nil
}

func procesarEntradaKardex(tx *gorm.DB, res *resolver.Resolver, alumnoID uint, planID *uint, entrada extract.KardexEntrada, resumen *Summary) error {
	periodo, err := res.ResolverPeriodoCompacto(entrada.CicloCompacto)
	if err != nil {
		return err
	}
	materiaID, err := res.ResolverMateria(entrada.CodigoMateria, entrada.NombreMateria, entrada.Creditos, "", planID)
	if err != nil {
		return err
	}

	estatus := strings.ToUpper(resolver.Colapsar(entrada.Estatus))

	var k models.Kardex
	err = tx.Where("alumno_id = ? AND materia_id = ? AND periodo_id = ?", alumnoID, materiaID, periodo.ID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		k = models.Kardex{
			AlumnoID:     alumnoID,
			MateriaID:    materiaID,
			PeriodoID:    periodo.ID,
			Calificacion: entrada.Calificacion,
			Estatus:      estatus,
		}
		if err := tx.Create(&k).Error; err != nil {
			return apperr.NewPersistenceError("crear renglón de kardex", err)
		}
		resumen.Agregados++
		return nil
	}
	if err != nil {
		return apperr.NewPersistenceError("buscar renglón de kardex", err)
	}

	updates := map[string]any{}
	if !calificacionesIguales(entrada.Calificacion, k.Calificacion) {
		updates["calificacion"] = entrada.Calificacion
	}
	if estatus != "" && estatus != k.Estatus {
		updates["estatus"] = estatus
	}
	return aplicarDiff(tx, &k, updates, resumen)
}

func calificacionesIguales(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
