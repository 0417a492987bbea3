package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// TxPolicy es la disciplina transaccional de una ingesta.
type TxPolicy int

const (
	// TxPerRow: cada fila hace commit por separado y las fallas de
	// validación se coleccionan como advertencias.
	TxPerRow TxPolicy = iota
	// TxAtomic: todas las escrituras del archivo van en una sola
	// transacción todo-o-nada.
	TxAtomic
)

// Policies asigna la disciplina transaccional por tipo de archivo. Se
// expone como configuración del orquestador para que las pruebas
// puedan afirmar la semántica por dominio.
type Policies map[string]TxPolicy

// DefaultPolicies reproduce la política histórica del sistema: kardex y
// planes de estudio son atómicos; estructura, horarios y listas de
// asistencia hacen commit por fila.
func DefaultPolicies() Policies {
	return Policies{
		models.TipoEstructura:       TxPerRow,
		models.TipoHorarioISI:       TxPerRow,
		models.TipoHorarioPrelistas: TxPerRow,
		models.TipoListaAsistencia:  TxPerRow,
		models.TipoKardex:           TxAtomic,
		models.TipoPlanEstudio:      TxAtomic,
	}
}

// checkpointCadaFilas es la cadencia de los eventos de avance en
// ingestas grandes.
const checkpointCadaFilas = 200

// Orchestrator secuencia UPLOAD → PARSE → INGESTA para un archivo,
// registrando cada etapa en la auditoría y dejando el estado final del
// archivo.
type Orchestrator struct {
	db       *gorm.DB
	Registry *FileRegistry
	Audit    *AuditTrail
	Sheets   extract.SheetParser
	PDF      extract.PDFParser
	Policies Policies
	Log      zerolog.Logger
}

func NewOrchestrator(db *gorm.DB, registry *FileRegistry, audit *AuditTrail,
	sheets extract.SheetParser, pdf extract.PDFParser, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:       db,
		Registry: registry,
		Audit:    audit,
		Sheets:   sheets,
		PDF:      pdf,
		Policies: DefaultPolicies(),
		Log:      log,
	}
}

// ProcessArchivo despacha el pipeline según el tipo del archivo. Los
// horarios en pareja (ISI + prelistas) entran por ProcessHorarios.
func (o *Orchestrator) ProcessArchivo(ctx context.Context, archivo *models.ArchivoCargado) (*Summary, error) {
	switch archivo.Tipo {
	case models.TipoEstructura:
		return o.ProcessEstructura(ctx, archivo)
	case models.TipoHorarioISI:
		return o.ProcessHorarios(ctx, archivo, nil)
	case models.TipoHorarioPrelistas:
		return o.ProcessHorarios(ctx, nil, archivo)
	case models.TipoListaAsistencia:
		return o.ProcessLista(ctx, archivo)
	case models.TipoKardex:
		return o.ProcessKardex(ctx, archivo)
	case models.TipoPlanEstudio:
		return o.ProcessPlan(ctx, archivo)
	}
	return nil, apperr.NewValidationError("tipo", 0, "tipo de archivo desconocido "+archivo.Tipo)
}

// etapaParseError registra la falla de PARSE y marca el archivo.
func (o *Orchestrator) etapaParseError(archivoID uint, err error) error {
	o.Log.Error().Uint("archivo", archivoID).Err(err).Msg("falla de parseo")
	if aerr := o.Audit.Append(archivoID, models.EtapaParse, models.AuditError, err.Error()); aerr != nil {
		return aerr
	}
	if merr := o.Registry.MarkEstado(archivoID, models.EstadoError); merr != nil {
		return merr
	}
	return err
}

// correrIngesta ejecuta fn bajo la política transaccional del tipo,
// registra INICIO/WARN/OK/ERROR de la etapa INGESTA y deja el estado
// final del archivo. fn recibe el manejador de base a usar (la
// transacción cuando la política es atómica).
func (o *Orchestrator) correrIngesta(archivoID uint, tipo string, fn func(tx *gorm.DB) (*Summary, error)) (*Summary, error) {
	if err := o.Audit.Append(archivoID, models.EtapaIngesta, models.AuditInicio, "inicia ingesta"); err != nil {
		return nil, err
	}

	var resumen *Summary
	var err error
	if o.Policies[tipo] == TxAtomic {
		err = o.db.Transaction(func(tx *gorm.DB) error {
			resumen, err = fn(tx)
			return err
		})
	} else {
		resumen, err = fn(o.db)
	}

	if err != nil {
		o.Log.Error().Uint("archivo", archivoID).Str("tipo", tipo).Err(err).Msg("falla de ingesta")
		if aerr := o.Audit.Append(archivoID, models.EtapaIngesta, models.AuditError, err.Error()); aerr != nil {
			return resumen, aerr
		}
		if merr := o.Registry.MarkEstado(archivoID, models.EstadoError); merr != nil {
			return resumen, merr
		}
		return resumen, err
	}

	for _, adv := range resumen.Advertencias {
		if aerr := o.Audit.Append(archivoID, models.EtapaIngesta, models.AuditWarn, adv); aerr != nil {
			return resumen, aerr
		}
	}
	if aerr := o.Audit.Append(archivoID, models.EtapaIngesta, models.AuditOK, resumen.String()); aerr != nil {
		return resumen, aerr
	}
	if merr := o.Registry.MarkEstado(archivoID, models.EstadoCompletado); merr != nil {
		return resumen, merr
	}
	o.Log.Info().Uint("archivo", archivoID).Str("tipo", tipo).Str("resumen", resumen.String()).Msg("ingesta completada")
	return resumen, nil
}

// checkpoint emite un evento de avance cada checkpointCadaFilas filas.
// Una falla al escribirlo se propaga: la bitácora nunca se degrada en
// silencio.
func (o *Orchestrator) checkpoint(archivoID uint, fila, total int) error {
	if fila%checkpointCadaFilas != 0 {
		return nil
	}
	return o.Audit.Appendf(archivoID, models.EtapaIngesta, models.AuditOK, "avance: %d/%d filas", fila, total)
}

// esFallaDeFila distingue las fallas que se degradan a advertencia en
// dominios por-fila de las que abortan el lote.
func esFallaDeFila(err error) bool {
	return errors.Is(err, apperr.ErrValidation)
}
