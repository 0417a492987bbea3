package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

// ProcessEstructura ingesta un extracto estructural de alumnos: datos
// demográficos y de situación académica, decenas de miles de filas.
// Política por fila: una fila inválida se salta con advertencia.
func (o *Orchestrator) ProcessEstructura(ctx context.Context, archivo *models.ArchivoCargado) (*Summary, error) {
	if err := o.Audit.Append(archivo.ID, models.EtapaParse, models.AuditInicio, "inicia parseo de estructura"); err != nil {
		return nil, err
	}
	doc, err := o.Sheets.Parse(ctx, archivo.StoragePath)
	if err != nil {
		return nil, o.etapaParseError(archivo.ID, err)
	}
	if err := o.Audit.Appendf(archivo.ID, models.EtapaParse, models.AuditOK, "%d filas extraídas", len(doc.Rows)); err != nil {
		return nil, err
	}

	return o.correrIngesta(archivo.ID, archivo.Tipo, func(tx *gorm.DB) (*Summary, error) {
		return o.ingestEstructura(archivo.ID, tx, doc)
	})
}

func (o *Orchestrator) ingestEstructura(archivoID uint, tx *gorm.DB, doc *extract.SheetDoc) (*Summary, error) {
	resumen := &Summary{}
	res := resolver.New(tx)

	periodo, err := res.ResolverPeriodo(doc.Meta.PeriodoEtiqueta)
	if err != nil {
		return resumen, err
	}

	for i, fila := range doc.Rows {
		if err := o.procesarFilaEstructura(tx, res, periodo.ID, fila, resumen); err != nil {
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

func (o *Orchestrator) procesarFilaEstructura(tx *gorm.DB, res *resolver.Resolver, periodoID uint, fila extract.SheetRow, resumen *Summary) error {
	expediente := fila.Campo("expediente")
	matricula := fila.Campo("matricula")
	nombre := fila.Campo("nombre")
	if expediente == "" {
		return apperr.NewValidationError("expediente", fila.RowIndex, "campo requerido vacío")
	}
	if matricula == "" {
		return apperr.NewValidationError("matricula", fila.RowIndex, "campo requerido vacío")
	}

	partes, err := resolver.SplitNombre(nombre)
	if err != nil {
		// el apellido es no nulo en el esquema: la fila se rechaza,
		// nunca se rellena con un valor por omisión
		return err
	}

	var planID *uint
	if pn := fila.Campo("plan_nombre"); pn != "" {
		id, err := res.ResolverPlan(pn, fila.Campo("plan_version"), 0, 0)
		if err != nil {
			return err
		}
		planID = &id
	}

	var fechaNac *time.Time
	if fn := fila.Campo("fecha_nacimiento"); fn != "" {
		t, err := time.Parse("2006-01-02", fn)
		if err != nil {
			return apperr.NewValidationError("fecha_nacimiento", fila.RowIndex, "fecha inválida "+fn)
		}
		fechaNac = &t
	}

	creditos := atoiODefault(fila.Campo("creditos"), 0)
	promedio := atofODefault(fila.Campo("promedio"), 0)

	alumnoID, err := upsertAlumno(tx, alumnoEntrante{
		Expediente:      expediente,
		Matricula:       matricula,
		Partes:          partes,
		Sexo:            strings.ToUpper(fila.Campo("sexo")),
		FechaNacimiento: fechaNac,
		EstadoAcademico: strings.ToUpper(resolver.Colapsar(fila.Campo("estado"))),
		PlanEstudioID:   planID,
		TotalCreditos:   creditos,
		Promedio:        promedio,
	}, resumen)
	if err != nil {
		return err
	}

	// la inscripción al periodo del extracto es buscar-o-crear; no
	// cuenta en el resumen de alumnos
	return asegurarInscripcion(tx, alumnoID, periodoID)
}

type alumnoEntrante struct {
	Expediente      string
	Matricula       string
	Partes          resolver.NombrePartes
	Sexo            string
	FechaNacimiento *time.Time
	EstadoAcademico string
	PlanEstudioID   *uint
	TotalCreditos   int
	Promedio        float64
}

// upsertAlumno inserta o actualiza con detección de cambios: solo se
// escribe si algún valor normalizado difiere del persistido.
func upsertAlumno(tx *gorm.DB, in alumnoEntrante, resumen *Summary) (uint, error) {
	var a models.Alumno
	err := tx.Where("expediente = ?", in.Expediente).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a = models.Alumno{
			Matricula:       in.Matricula,
			Expediente:      in.Expediente,
			Nombre:          in.Partes.Nombres,
			ApellidoPaterno: in.Partes.ApellidoPaterno,
			ApellidoMaterno: in.Partes.ApellidoMaterno,
			Sexo:            in.Sexo,
			FechaNacimiento: in.FechaNacimiento,
			EstadoAcademico: in.EstadoAcademico,
			PlanEstudioID:   in.PlanEstudioID,
			TotalCreditos:   in.TotalCreditos,
			Promedio:        in.Promedio,
		}
		if err := tx.Create(&a).Error; err != nil {
			return 0, apperr.NewPersistenceError("crear alumno", err)
		}
		resumen.Agregados++
		return a.ID, nil
	}
	if err != nil {
		return 0, apperr.NewPersistenceError("buscar alumno", err)
	}

	updates := map[string]any{}
	if in.Matricula != a.Matricula {
		updates["matricula"] = in.Matricula
	}
	if in.Partes.Nombres != a.Nombre {
		updates["nombre"] = in.Partes.Nombres
	}
	if in.Partes.ApellidoPaterno != a.ApellidoPaterno {
		updates["apellido_paterno"] = in.Partes.ApellidoPaterno
	}
	if in.Partes.ApellidoMaterno != a.ApellidoMaterno {
		updates["apellido_materno"] = in.Partes.ApellidoMaterno
	}
	if in.Sexo != "" && in.Sexo != a.Sexo {
		updates["sexo"] = in.Sexo
	}
	if in.FechaNacimiento != nil && (a.FechaNacimiento == nil || !in.FechaNacimiento.Equal(*a.FechaNacimiento)) {
		updates["fecha_nacimiento"] = in.FechaNacimiento
	}
	if in.EstadoAcademico != "" && in.EstadoAcademico != a.EstadoAcademico {
		updates["estado_academico"] = in.EstadoAcademico
	}
	if in.PlanEstudioID != nil && (a.PlanEstudioID == nil || *in.PlanEstudioID != *a.PlanEstudioID) {
		updates["plan_estudio_id"] = in.PlanEstudioID
	}
	if in.TotalCreditos != 0 && in.TotalCreditos != a.TotalCreditos {
		updates["total_creditos"] = in.TotalCreditos
	}
	if in.Promedio != 0 && in.Promedio != a.Promedio {
		updates["promedio"] = in.Promedio
	}
	return a.ID, aplicarDiff(tx, &a, updates, resumen)
}

// asegurarInscripcion crea la inscripción (alumno, periodo) si no existe.
func asegurarInscripcion(tx *gorm.DB, alumnoID, periodoID uint) error {
	var ins models.Inscripcion
	err := tx.Where("alumno_id = ? AND periodo_id = ?", alumnoID, periodoID).First(&ins).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewPersistenceError("buscar inscripción", err)
	}
	ins = models.Inscripcion{AlumnoID: alumnoID, PeriodoID: periodoID, Estatus: "ACTIVA"}
	if err := tx.Create(&ins).Error; err != nil {
		return apperr.NewPersistenceError("crear inscripción", err)
	}
	return nil
}

func atoiODefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atofODefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return def
	}
	return f
}
