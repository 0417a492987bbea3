package ingest

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

// ProcessPlan ingesta un plan de estudios extraído de PDF: el plan y
// sus materias. Política atómica.
func (o *Orchestrator) ProcessPlan(ctx context.Context, archivo *models.ArchivoCargado) (*Summary, error) {
	if err := o.Audit.Append(archivo.ID, models.EtapaParse, models.AuditInicio, "inicia extracción de plan"); err != nil {
		return nil, err
	}
	res, err := o.PDF.Extract(ctx, archivo.StoragePath)
	if err != nil {
		return nil, o.etapaParseError(archivo.ID, err)
	}
	if res.Plan == nil {
		return nil, o.etapaParseError(archivo.ID,
			&apperr.TransientError{Detalle: "el extractor no devolvió un plan de estudios"})
	}
	doc := res.Plan
	if err := o.Audit.Appendf(archivo.ID, models.EtapaParse, models.AuditOK,
		"plan %q v%s con %d materias", doc.Nombre, doc.Version, len(doc.Materias)); err != nil {
		return nil, err
	}

	return o.correrIngesta(archivo.ID, archivo.Tipo, func(tx *gorm.DB) (*Summary, error) {
		return ingestPlan(tx, doc)
	})
}

func ingestPlan(tx *gorm.DB, doc *extract.PlanDoc) (*Summary, error) {
	resumen := &Summary{}
	res := resolver.New(tx)

	planID, err := res.ResolverPlan(doc.Nombre, doc.Version, doc.TotalCreditos, doc.SemestresSugeridos)
	if err != nil {
		return resumen, err
	}
	if err := actualizarPlan(tx, planID, doc); err != nil {
		return resumen, err
	}

	for _, pm := range doc.Materias {
		if err := upsertMateriaEnPlan(tx, planID, pm, resumen); err != nil {
			return resumen, err
		}
	}
	return resumen, nil
}

// actualizarPlan corrige los totales del plan si el documento trae
// valores distintos de los persistidos.
func actualizarPlan(tx *gorm.DB, planID uint, doc *extract.PlanDoc) error {
	var p models.PlanEstudio
	if err := tx.First(&p, planID).Error; err != nil {
		return apperr.NewPersistenceError("leer plan", err)
	}
	updates := map[string]any{}
	if doc.TotalCreditos != 0 && doc.TotalCreditos != p.TotalCreditos {
		updates["total_creditos"] = doc.TotalCreditos
	}
	if doc.SemestresSugeridos != 0 && doc.SemestresSugeridos != p.SemestresSugeridos {
		updates["semestres_sugeridos"] = doc.SemestresSugeridos
	}
	if len(updates) == 0 {
		return nil
	}
	if err := tx.Model(&p).Updates(updates).Error; err != nil {
		return apperr.NewPersistenceError("actualizar plan", err)
	}
	return nil
}

// upsertMateriaEnPlan inserta o actualiza una materia del plan con
// detección de cambios campo por campo.
func upsertMateriaEnPlan(tx *gorm.DB, planID uint, pm extract.PlanMateria, resumen *Summary) error {
	cod := resolver.NormalizarCodigoMateria(pm.Codigo)
	if cod == "" {
		return apperr.NewValidationError("codigo", 0, "materia del plan sin código")
	}
	nombre := resolver.Colapsar(pm.Nombre)
	tipo := resolver.ClasificarMateria(pm.Clasificacion)

	var m models.Materia
	err := tx.Where("codigo = ?", cod).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = models.Materia{
			Codigo:        cod,
			Nombre:        nombre,
			Creditos:      pm.Creditos,
			Tipo:          tipo,
			PlanEstudioID: &planID,
		}
		if err := tx.Create(&m).Error; err != nil {
			return apperr.NewPersistenceError("crear materia", err)
		}
		resumen.Agregados++
		return nil
	}
	if err != nil {
		return apperr.NewPersistenceError("buscar materia", err)
	}

	updates := map[string]any{}
	if nombre != "" && nombre != m.Nombre {
		updates["nombre"] = nombre
	}
	if pm.Creditos != 0 && pm.Creditos != m.Creditos {
		updates["creditos"] = pm.Creditos
	}
	if tipo != m.Tipo {
		updates["tipo"] = tipo
	}
	if m.PlanEstudioID == nil || *m.PlanEstudioID != planID {
		updates["plan_estudio_id"] = planID
	}
	return aplicarDiff(tx, &m, updates, resumen)
}
