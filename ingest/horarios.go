package ingest

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/merge"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

// ProcessHorarios ingesta horarios. Acepta el extracto tabular ISI, el
// de rejilla de prelistas, o ambos; cuando llegan los dos, el
// combinador los funde en un conjunto canónico antes de resolver.
// Cualquiera de los dos archivos puede ser nil.
func (o *Orchestrator) ProcessHorarios(ctx context.Context, isi, rejilla *models.ArchivoCargado) (*Summary, error) {
	principal := isi
	if principal == nil {
		principal = rejilla
	}
	if principal == nil {
		return nil, apperr.NewValidationError("archivo", 0, "no se recibió ningún extracto de horarios")
	}

	var tabular, grid []merge.Registro
	var etiqueta string

	if isi != nil {
		doc, err := o.parseHorario(ctx, isi)
		if err != nil {
			// la pareja comparte el desenlace también cuando la falla
			// es de parseo: ninguno de los dos queda PENDIENTE
			if rejilla != nil {
				if merr := o.abortarPareja(rejilla.ID, isi.ID, err); merr != nil {
					return nil, merr
				}
			}
			return nil, err
		}
		tabular = filasTabulares(doc)
		etiqueta = doc.Meta.PeriodoEtiqueta
	}
	if rejilla != nil {
		doc, err := o.parseHorario(ctx, rejilla)
		if err != nil {
			if isi != nil {
				if merr := o.abortarPareja(isi.ID, rejilla.ID, err); merr != nil {
					return nil, merr
				}
			}
			return nil, err
		}
		grid = filasRejilla(doc)
		if etiqueta == "" {
			etiqueta = doc.Meta.PeriodoEtiqueta
		}
	}

	resumen, err := o.correrIngesta(principal.ID, principal.Tipo, func(tx *gorm.DB) (*Summary, error) {
		return o.ingestHorarios(principal.ID, tx, tabular, grid, etiqueta)
	})

	// el segundo archivo de la pareja comparte el desenlace
	if err == nil && isi != nil && rejilla != nil {
		if aerr := o.Audit.Appendf(rejilla.ID, models.EtapaIngesta, models.AuditOK,
			"ingerido junto con archivo %d: %s", isi.ID, resumen.String()); aerr != nil {
			return resumen, aerr
		}
		if merr := o.Registry.MarkEstado(rejilla.ID, models.EstadoCompletado); merr != nil {
			return resumen, merr
		}
	}
	if err != nil && isi != nil && rejilla != nil {
		if merr := o.abortarPareja(rejilla.ID, isi.ID, err); merr != nil {
			return resumen, merr
		}
	}
	return resumen, err
}

// abortarPareja propaga a un archivo el desenlace de su pareja fallida:
// evento de auditoría y estado ERROR, nunca PENDIENTE indefinido.
func (o *Orchestrator) abortarPareja(archivoID, parejaID uint, causa error) error {
	if aerr := o.Audit.Appendf(archivoID, models.EtapaIngesta, models.AuditError,
		"abortado por falla del archivo %d: %v", parejaID, causa); aerr != nil {
		return aerr
	}
	return o.Registry.MarkEstado(archivoID, models.EstadoError)
}

func (o *Orchestrator) parseHorario(ctx context.Context, archivo *models.ArchivoCargado) (*extract.SheetDoc, error) {
	if err := o.Audit.Append(archivo.ID, models.EtapaParse, models.AuditInicio, "inicia parseo de horario"); err != nil {
		return nil, err
	}
	doc, err := o.Sheets.Parse(ctx, archivo.StoragePath)
	if err != nil {
		return nil, o.etapaParseError(archivo.ID, err)
	}
	if err := o.Audit.Appendf(archivo.ID, models.EtapaParse, models.AuditOK, "%d filas extraídas", len(doc.Rows)); err != nil {
		return nil, err
	}
	return doc, nil
}

func (o *Orchestrator) ingestHorarios(archivoID uint, tx *gorm.DB, tabular, grid []merge.Registro, etiqueta string) (*Summary, error) {
	resumen := &Summary{}
	res := resolver.New(tx)

	periodoBase, err := res.ResolverPeriodo(etiqueta)
	if err != nil {
		return resumen, err
	}

	canon := merge.Combinar(tabular, grid, periodoBase.Etiqueta)

	for i, reg := range canon {
		if err := o.procesarRegistroHorario(tx, res, periodoBase.ID, reg, resumen); err != nil {
			if esFallaDeFila(err) {
				resumen.advertir("registro de horario %q descartado: %v", reg.NombreMateria, err)
				continue
			}
			return resumen, err
		}
		if err := o.checkpoint(archivoID, i+1, len(canon)); err != nil {
			return resumen, err
		}
	}
	return resumen, nil
}

func (o *Orchestrator) procesarRegistroHorario(tx *gorm.DB, res *resolver.Resolver, periodoBaseID uint, reg merge.Registro, resumen *Summary) error {
	periodoID := periodoBaseID
	if reg.PeriodoEtiqueta != "" {
		p, err := res.ResolverPeriodo(reg.PeriodoEtiqueta)
		if err != nil {
			return err
		}
		periodoID = p.ID
	}

	var materiaID uint
	var err error
	if reg.CodigoMateria != "" {
		materiaID, err = res.ResolverMateria(reg.CodigoMateria, reg.NombreMateria, 0, "", nil)
	} else {
		materiaID, err = res.ResolverMateriaPorNombre(reg.NombreMateria, nil)
	}
	if err != nil {
		return err
	}

	clave := reg.Clave
	provisional := false
	if strings.TrimSpace(clave) == "" {
		clave = resolver.SintetizarClaveGrupo(reg.NombreMateria, reg.Aula)
		provisional = true
	}

	// se observa si el grupo ya existía para clasificar el registro en
	// agregado / actualizado / sin cambio
	grupoPrevioID, errPrevio := res.BuscarGrupo(materiaID, periodoID, clave)
	existia := errPrevio == nil
	if errPrevio != nil && !errors.Is(errPrevio, apperr.ErrNotFound) {
		return errPrevio
	}

	grupoID, err := res.ResolverGrupo(materiaID, periodoID, clave, reg.Cupo, provisional)
	if err != nil {
		return err
	}

	cambio := false
	if existia {
		var g models.Grupo
		if err := tx.First(&g, grupoPrevioID).Error; err != nil {
			return apperr.NewPersistenceError("leer grupo", err)
		}
		if reg.Cupo > 0 && reg.Cupo != g.Cupo {
			if err := tx.Model(&g).Update("cupo", reg.Cupo).Error; err != nil {
				return apperr.NewPersistenceError("actualizar cupo", err)
			}
			cambio = true
		}
	}

	// asignación docente: advertencia si el nombre no se puede
	// descomponer, el registro sigue valiendo por sus franjas
	if reg.Profesor != "" {
		var numEmpleado *string
		if ne := strings.TrimSpace(reg.NumEmpleado); ne != "" {
			numEmpleado = &ne
		}
		profesorID, err := res.ResolverProfesor(numEmpleado, reg.Profesor)
		if err != nil {
			if !esFallaDeFila(err) {
				return err
			}
			resumen.advertir("profesor %q no asignable: %v", reg.Profesor, err)
		} else {
			creada, err := asegurarAsignacion(tx, grupoID, profesorID)
			if err != nil {
				return err
			}
			cambio = cambio || creada
		}
	}

	// franjas: reemplazo total del conjunto del grupo
	franjas := normalizarFranjas(reg)
	previas, err := franjasPersistidas(tx, grupoID)
	if err != nil {
		return err
	}
	if huellaFranjas(previas) != huellaFranjas(franjas) {
		if err := ReplaceHorarios(tx, grupoID, franjas); err != nil {
			return err
		}
		cambio = true
	}

	switch {
	case !existia:
		resumen.Agregados++
	case cambio:
		resumen.Actualizados++
	default:
		resumen.SinCambio++
	}
	return nil
}

// normalizarFranjas propaga el aula del registro a las franjas que no
// traen aula propia.
func normalizarFranjas(reg merge.Registro) []merge.Franja {
	franjas := make([]merge.Franja, 0, len(reg.Franjas))
	for _, f := range reg.Franjas {
		if f.Aula == "" {
			f.Aula = reg.Aula
		}
		franjas = append(franjas, f)
	}
	return franjas
}

func asegurarAsignacion(tx *gorm.DB, grupoID, profesorID uint) (bool, error) {
	var asig models.AsignacionProfesor
	err := tx.Where("grupo_id = ? AND profesor_id = ?", grupoID, profesorID).First(&asig).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.NewPersistenceError("buscar asignación", err)
	}
	asig = models.AsignacionProfesor{GrupoID: grupoID, ProfesorID: profesorID, RolDocente: models.RolDocenteTitular}
	if err := tx.Create(&asig).Error; err != nil {
		return false, apperr.NewPersistenceError("crear asignación", err)
	}
	return true, nil
}

/* ============ conversión de filas extraídas a registros ============ */

// filasTabulares convierte el extracto ISI: cada fila trae sección/NRC
// explícitos y las franjas codificadas "LUN 07:00-08:30;MIE 07:00-08:30".
func filasTabulares(doc *extract.SheetDoc) []merge.Registro {
	registros := make([]merge.Registro, 0, len(doc.Rows))
	for _, fila := range doc.Rows {
		registros = append(registros, merge.Registro{
			PeriodoEtiqueta: fila.Campo("periodo"),
			CodigoMateria:   fila.Campo("codigo_materia"),
			NombreMateria:   fila.Campo("materia"),
			Clave:           fila.Campo("clave"),
			NRC:             fila.Campo("nrc"),
			Aula:            fila.Campo("aula"),
			Profesor:        fila.Campo("profesor"),
			NumEmpleado:     fila.Campo("num_empleado"),
			Cupo:            atoiODefault(fila.Campo("cupo"), 0),
			Franjas:         parseFranjas(fila.Campo("franjas"), fila.Campo("aula")),
		})
	}
	return registros
}

var diasRejilla = []struct{ campo, dia string }{
	{"lunes", "LUN"}, {"martes", "MAR"}, {"miercoles", "MIE"},
	{"jueves", "JUE"}, {"viernes", "VIE"}, {"sabado", "SAB"},
}

// filasRejilla convierte el extracto de prelistas: columnas fijas por
// día de la semana con el rango "07:00-08:30" en la celda.
func filasRejilla(doc *extract.SheetDoc) []merge.Registro {
	registros := make([]merge.Registro, 0, len(doc.Rows))
	for _, fila := range doc.Rows {
		reg := merge.Registro{
			NombreMateria: fila.Campo("materia"),
			Clave:         fila.Campo("clave"),
			Aula:          fila.Campo("aula"),
			Profesor:      fila.Campo("profesor"),
		}
		for _, d := range diasRejilla {
			if celda := fila.Campo(d.campo); celda != "" {
				if inicio, fin, ok := parseRango(celda); ok {
					reg.Franjas = append(reg.Franjas, merge.Franja{Dia: d.dia, Inicio: inicio, Fin: fin, Aula: reg.Aula})
				}
			}
		}
		registros = append(registros, reg)
	}
	return registros
}

// parseFranjas decodifica "LUN 07:00-08:30;MIE 07:00-08:30".
func parseFranjas(s, aula string) []merge.Franja {
	var franjas []merge.Franja
	for _, parte := range strings.Split(s, ";") {
		campos := strings.Fields(parte)
		if len(campos) != 2 {
			continue
		}
		if inicio, fin, ok := parseRango(campos[1]); ok {
			franjas = append(franjas, merge.Franja{Dia: strings.ToUpper(campos[0]), Inicio: inicio, Fin: fin, Aula: aula})
		}
	}
	return franjas
}

// parseRango decodifica "07:00-08:30".
func parseRango(s string) (inicio, fin string, ok bool) {
	partes := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(partes) != 2 || partes[0] == "" || partes[1] == "" {
		return "", "", false
	}
	return strings.TrimSpace(partes[0]), strings.TrimSpace(partes[1]), true
}
