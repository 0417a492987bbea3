package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

func TestDefaultPoliciesPorDominio(t *testing.T) {
	p := DefaultPolicies()
	assert.Equal(t, TxAtomic, p[models.TipoKardex])
	assert.Equal(t, TxAtomic, p[models.TipoPlanEstudio])
	assert.Equal(t, TxPerRow, p[models.TipoEstructura])
	assert.Equal(t, TxPerRow, p[models.TipoHorarioISI])
	assert.Equal(t, TxPerRow, p[models.TipoListaAsistencia])
}

/* ===================== Estructura ===================== */

func docEstructura() *extract.SheetDoc {
	return &extract.SheetDoc{
		Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"},
		Rows: []extract.SheetRow{
			fila(2, map[string]string{
				"expediente": "10001", "matricula": "A10001",
				"nombre": "MARIA DE LA CRUZ GARCIA", "sexo": "F",
				"estado": "regular", "creditos": "120", "promedio": "9.1",
			}),
			fila(3, map[string]string{
				"expediente": "10002", "matricula": "A10002",
				"nombre": "JUAN PEREZ", "sexo": "M", "estado": "regular",
			}),
			// nombre indivisible: se descarta con advertencia
			fila(4, map[string]string{
				"expediente": "10003", "matricula": "A10003", "nombre": "CHER",
			}),
		},
	}
}

func TestProcessEstructuraIngestaYAudita(t *testing.T) {
	sheets := &sheetsStub{docs: []*extract.SheetDoc{docEstructura()}}
	db, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	archivo := registrarPrueba(t, registry, models.TipoEstructura, []byte("estructura-v1"))
	resumen, err := orq.ProcessArchivo(context.Background(), archivo)
	require.NoError(t, err)

	assert.Equal(t, 2, resumen.Agregados)
	assert.Zero(t, resumen.Actualizados)
	require.Len(t, resumen.Advertencias, 1)
	assert.Contains(t, resumen.Advertencias[0], "fila 4")

	var alumnos int64
	db.Model(&models.Alumno{}).Count(&alumnos)
	assert.EqualValues(t, 2, alumnos)

	// el periodo del extracto genera inscripciones
	var inscripciones int64
	db.Model(&models.Inscripcion{}).Count(&inscripciones)
	assert.EqualValues(t, 2, inscripciones)

	actual, err := registry.Buscar(archivo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoCompletado, actual.EstadoProceso)

	assert.NotEmpty(t, eventosDe(t, audit, archivo.ID, models.EtapaParse, models.AuditOK))
	assert.NotEmpty(t, eventosDe(t, audit, archivo.ID, models.EtapaIngesta, models.AuditInicio))
	assert.Len(t, eventosDe(t, audit, archivo.ID, models.EtapaIngesta, models.AuditWarn), 1)
	assert.NotEmpty(t, eventosDe(t, audit, archivo.ID, models.EtapaIngesta, models.AuditOK))
}

func TestProcessEstructuraReingestaSinCambios(t *testing.T) {
	sheets := &sheetsStub{docs: []*extract.SheetDoc{docEstructura(), docEstructura()}}
	_, registry, _, orq := nuevaInfra(t, sheets, &pdfStub{})

	a1 := registrarPrueba(t, registry, models.TipoEstructura, []byte("estructura-v1"))
	_, err := orq.ProcessArchivo(context.Background(), a1)
	require.NoError(t, err)

	// el mismo extracto con otros bytes (p. ej. re-exportado)
	a2 := registrarPrueba(t, registry, models.TipoEstructura, []byte("estructura-v2"))
	resumen, err := orq.ProcessArchivo(context.Background(), a2)
	require.NoError(t, err)

	assert.Zero(t, resumen.Agregados)
	assert.Zero(t, resumen.Actualizados)
	assert.Equal(t, 2, resumen.SinCambio)
}

func TestProcessEstructuraCheckpointsCada200Filas(t *testing.T) {
	doc := &extract.SheetDoc{Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"}}
	for i := 0; i < 201; i++ {
		doc.Rows = append(doc.Rows, fila(i+2, map[string]string{
			"expediente": fmt.Sprintf("2%04d", i),
			"matricula":  fmt.Sprintf("A2%04d", i),
			"nombre":     fmt.Sprintf("ALUMNO%d PEREZ LOPEZ", i),
		}))
	}
	sheets := &sheetsStub{docs: []*extract.SheetDoc{doc}}
	_, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	archivo := registrarPrueba(t, registry, models.TipoEstructura, []byte("estructura-grande"))
	_, err := orq.ProcessArchivo(context.Background(), archivo)
	require.NoError(t, err)

	eventos := eventosDe(t, audit, archivo.ID, models.EtapaIngesta, models.AuditOK)
	var avances []string
	for _, ev := range eventos {
		if len(ev.Detalle) > 6 && ev.Detalle[:6] == "avance" {
			avances = append(avances, ev.Detalle)
		}
	}
	require.Len(t, avances, 1)
	assert.Equal(t, "avance: 200/201 filas", avances[0])
}

func TestProcessEstructuraParseFallidoMarcaError(t *testing.T) {
	sheets := &sheetsStub{err: &apperr.TransientError{Detalle: "el extractor terminó con error", Salida: "traceback"}}
	_, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	archivo := registrarPrueba(t, registry, models.TipoEstructura, []byte("corrupto"))
	_, err := orq.ProcessArchivo(context.Background(), archivo)
	require.ErrorIs(t, err, apperr.ErrTransient)

	actual, err := registry.Buscar(archivo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoError, actual.EstadoProceso)

	errores := eventosDe(t, audit, archivo.ID, models.EtapaParse, models.AuditError)
	require.Len(t, errores, 1)
	assert.Contains(t, errores[0].Detalle, "traceback")
}

/* ===================== Lista de asistencia ===================== */

func TestProcessListaVinculaAlumnosAlGrupo(t *testing.T) {
	doc := &extract.SheetDoc{
		Meta: extract.SheetMeta{
			PeriodoEtiqueta: "2025-1",
			CodigoMateria:   "350",
			ClaveGrupo:      "1A",
		},
		Rows: []extract.SheetRow{
			fila(5, map[string]string{"expediente": "10001", "matricula": "A10001", "nombre": "MARIA DE LA CRUZ GARCIA"}),
			fila(6, map[string]string{"expediente": "10002", "matricula": "A10002", "nombre": "JUAN PEREZ"}),
		},
	}
	sheets := &sheetsStub{docs: []*extract.SheetDoc{doc}}
	db, registry, _, orq := nuevaInfra(t, sheets, &pdfStub{})

	// el grupo debe existir desde una carga previa
	res := resolver.New(db)
	p, err := res.ResolverPeriodo("2025-1")
	require.NoError(t, err)
	materiaID, err := res.ResolverMateria("350", "Cálculo", 8, "", nil)
	require.NoError(t, err)
	_, err = res.ResolverGrupo(materiaID, p.ID, "1A", 30, false)
	require.NoError(t, err)

	archivo := registrarPrueba(t, registry, models.TipoListaAsistencia, []byte("lista-1a"))
	resumen, err := orq.ProcessArchivo(context.Background(), archivo)
	require.NoError(t, err)
	assert.Equal(t, 2, resumen.Agregados)

	var vinculos []models.AlumnoGrupo
	require.NoError(t, db.Find(&vinculos).Error)
	require.Len(t, vinculos, 2)
	for _, v := range vinculos {
		assert.Equal(t, models.FuenteRosterFile, v.Fuente)
		require.NotNil(t, v.ArchivoID)
		assert.Equal(t, archivo.ID, *v.ArchivoID)
	}
}

func TestProcessListaGrupoInexistenteAborta(t *testing.T) {
	doc := &extract.SheetDoc{
		Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1", CodigoMateria: "350", ClaveGrupo: "1A"},
		Rows: []extract.SheetRow{
			fila(5, map[string]string{"expediente": "10001", "nombre": "JUAN PEREZ"}),
		},
	}
	sheets := &sheetsStub{docs: []*extract.SheetDoc{doc}}
	db, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	// la materia existe pero el grupo no: debe abortar, nunca crearlo
	res := resolver.New(db)
	_, err := res.ResolverMateria("350", "Cálculo", 8, "", nil)
	require.NoError(t, err)

	archivo := registrarPrueba(t, registry, models.TipoListaAsistencia, []byte("lista-sin-grupo"))
	_, err = orq.ProcessArchivo(context.Background(), archivo)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	var grupos int64
	db.Model(&models.Grupo{}).Count(&grupos)
	assert.Zero(t, grupos)

	actual, err := registry.Buscar(archivo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoError, actual.EstadoProceso)
	assert.Len(t, eventosDe(t, audit, archivo.ID, models.EtapaIngesta, models.AuditError), 1)
}

/* ===================== Kardex ===================== */

func docKardex() *extract.KardexDoc {
	calif := 8.5
	return &extract.KardexDoc{
		Matricula:      "A10001",
		Expediente:     "10001",
		NombreCompleto: "MARIA DE LA CRUZ GARCIA",
		PlanNombre:     "ISC",
		PlanVersion:    "2020",
		Promedio:       8.5,
		TotalCreditos:  96,
		Entradas: []extract.KardexEntrada{
			{CicloCompacto: "2513", CodigoMateria: "350", NombreMateria: "Cálculo", Creditos: 8, Calificacion: &calif, Estatus: "APROBADA"},
			{CicloCompacto: "2513", CodigoMateria: "351", NombreMateria: "Álgebra", Creditos: 8, Estatus: "CURSANDO"},
		},
	}
}

func TestProcessKardexIngestaYEsIdempotente(t *testing.T) {
	pdf := &pdfStub{res: &extract.PDFResult{OK: true, Kardex: docKardex()}}
	db, registry, _, orq := nuevaInfra(t, &sheetsStub{}, pdf)

	a1 := registrarPrueba(t, registry, models.TipoKardex, []byte("kardex-v1"))
	resumen, err := orq.ProcessArchivo(context.Background(), a1)
	require.NoError(t, err)
	assert.Equal(t, 2, resumen.Agregados)

	var renglones int64
	db.Model(&models.Kardex{}).Count(&renglones)
	assert.EqualValues(t, 2, renglones)

	// segunda corrida idéntica: nada que escribir
	a2 := registrarPrueba(t, registry, models.TipoKardex, []byte("kardex-v2"))
	resumen, err = orq.ProcessArchivo(context.Background(), a2)
	require.NoError(t, err)
	assert.Zero(t, resumen.Agregados)
	assert.Zero(t, resumen.Actualizados)
	assert.Equal(t, 2, resumen.SinCambio)

	db.Model(&models.Kardex{}).Count(&renglones)
	assert.EqualValues(t, 2, renglones)
}

func TestProcessKardexAtomicoRevierteTodo(t *testing.T) {
	doc := docKardex()
	// la segunda entrada trae un ciclo indecodificable: en un dominio
	// transaccional esto aborta y revierte también la primera
	doc.Entradas[1].CicloCompacto = "2593"
	pdf := &pdfStub{res: &extract.PDFResult{OK: true, Kardex: doc}}
	db, registry, _, orq := nuevaInfra(t, &sheetsStub{}, pdf)

	archivo := registrarPrueba(t, registry, models.TipoKardex, []byte("kardex-malo"))
	_, err := orq.ProcessArchivo(context.Background(), archivo)
	require.Error(t, err)

	var renglones, alumnos int64
	db.Model(&models.Kardex{}).Count(&renglones)
	db.Model(&models.Alumno{}).Count(&alumnos)
	assert.Zero(t, renglones, "la transacción debe revertir los renglones ya escritos")
	assert.Zero(t, alumnos, "la transacción debe revertir al alumno creado")

	actual, err := registry.Buscar(archivo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoError, actual.EstadoProceso)
}

func TestProcessKardexSinDocumentoEsTransitorio(t *testing.T) {
	pdf := &pdfStub{res: &extract.PDFResult{OK: true}}
	_, registry, _, orq := nuevaInfra(t, &sheetsStub{}, pdf)

	archivo := registrarPrueba(t, registry, models.TipoKardex, []byte("pdf-vacio"))
	_, err := orq.ProcessArchivo(context.Background(), archivo)
	assert.ErrorIs(t, err, apperr.ErrTransient)
}

/* ===================== Plan de estudios ===================== */

func docPlan() *extract.PlanDoc {
	return &extract.PlanDoc{
		Nombre:             "ISC",
		Version:            "2020",
		TotalCreditos:      240,
		SemestresSugeridos: 9,
		Materias: []extract.PlanMateria{
			{Codigo: "350", Nombre: "Cálculo Diferencial", Creditos: 8, Clasificacion: "obligatoria", Semestre: 1},
		},
	}
}

func TestProcessPlanDetectaCambios(t *testing.T) {
	pdf := &pdfStub{res: &extract.PDFResult{OK: true, Plan: docPlan()}}
	_, registry, _, orq := nuevaInfra(t, &sheetsStub{}, pdf)

	a1 := registrarPrueba(t, registry, models.TipoPlanEstudio, []byte("plan-v1"))
	resumen, err := orq.ProcessArchivo(context.Background(), a1)
	require.NoError(t, err)
	assert.Equal(t, 1, resumen.Agregados)
	assert.Zero(t, resumen.Actualizados)

	// payload idéntico: sin escrituras
	a2 := registrarPrueba(t, registry, models.TipoPlanEstudio, []byte("plan-v2"))
	resumen, err = orq.ProcessArchivo(context.Background(), a2)
	require.NoError(t, err)
	assert.Zero(t, resumen.Agregados)
	assert.Zero(t, resumen.Actualizados)
	assert.Equal(t, 1, resumen.SinCambio)
}

/* ===================== Horarios ===================== */

func TestProcessHorariosReemplazaFranjas(t *testing.T) {
	docCompleto := &extract.SheetDoc{
		Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"},
		Rows: []extract.SheetRow{
			fila(2, map[string]string{
				"codigo_materia": "350", "materia": "Cálculo", "clave": "1A",
				"nrc": "10234", "aula": "A201",
				"franjas": "LUN 07:00-08:30;MIE 07:00-08:30",
			}),
		},
	}
	docReducido := &extract.SheetDoc{
		Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"},
		Rows: []extract.SheetRow{
			fila(2, map[string]string{
				"codigo_materia": "350", "materia": "Cálculo", "clave": "1A",
				"nrc": "10234", "aula": "A201",
				"franjas": "LUN 07:00-08:30",
			}),
		},
	}
	sheets := &sheetsStub{docs: []*extract.SheetDoc{docCompleto, docReducido}}
	db, registry, _, orq := nuevaInfra(t, sheets, &pdfStub{})

	a1 := registrarPrueba(t, registry, models.TipoHorarioISI, []byte("horario-v1"))
	resumen, err := orq.ProcessArchivo(context.Background(), a1)
	require.NoError(t, err)
	assert.Equal(t, 1, resumen.Agregados)

	var franjas int64
	db.Model(&models.Horario{}).Count(&franjas)
	assert.EqualValues(t, 2, franjas)

	a2 := registrarPrueba(t, registry, models.TipoHorarioISI, []byte("horario-v2"))
	resumen, err = orq.ProcessArchivo(context.Background(), a2)
	require.NoError(t, err)
	assert.Equal(t, 1, resumen.Actualizados)

	var restantes []models.Horario
	require.NoError(t, db.Find(&restantes).Error)
	require.Len(t, restantes, 1, "las franjas viejas se reemplazan, no se mezclan")
	assert.Equal(t, "LUN", restantes[0].DiaSemana)
}

func TestProcessHorariosCombinaAmbosExtractos(t *testing.T) {
	docISI := &extract.SheetDoc{
		Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"},
		Rows: []extract.SheetRow{
			fila(2, map[string]string{
				"codigo_materia": "350", "materia": "Cálculo", "clave": "1A",
				"nrc": "10234", "aula": "A201",
			}),
		},
	}
	docRejilla := &extract.SheetDoc{
		Rows: []extract.SheetRow{
			fila(2, map[string]string{
				"materia": "CÁLCULO", "aula": "B300",
				"profesor": "PEDRO RAMIREZ SOLIS",
				"lunes":    "07:00-08:30",
			}),
		},
	}
	sheets := &sheetsStub{docs: []*extract.SheetDoc{docISI, docRejilla}}
	db, registry, _, orq := nuevaInfra(t, sheets, &pdfStub{})

	isi := registrarPrueba(t, registry, models.TipoHorarioISI, []byte("isi"))
	rejilla := registrarPrueba(t, registry, models.TipoHorarioPrelistas, []byte("prelistas"))

	resumen, err := orq.ProcessHorarios(context.Background(), isi, rejilla)
	require.NoError(t, err)
	assert.Equal(t, 1, resumen.Agregados)

	// un solo grupo canónico, con el profesor adoptado de la rejilla
	var grupos int64
	db.Model(&models.Grupo{}).Count(&grupos)
	assert.EqualValues(t, 1, grupos)

	var asignaciones int64
	db.Model(&models.AsignacionProfesor{}).Count(&asignaciones)
	assert.EqualValues(t, 1, asignaciones)

	var prof models.Profesor
	require.NoError(t, db.First(&prof).Error)
	assert.True(t, prof.Provisional)

	// ambos archivos terminan COMPLETADO
	for _, a := range []uint{isi.ID, rejilla.ID} {
		actual, err := registry.Buscar(a)
		require.NoError(t, err)
		assert.Equal(t, models.EstadoCompletado, actual.EstadoProceso)
	}
}

func TestProcessHorariosFallaDeParseoCompartidaConLaPareja(t *testing.T) {
	docISI := &extract.SheetDoc{Meta: extract.SheetMeta{PeriodoEtiqueta: "2025-1"}}
	sheets := &sheetsStub{
		docs: []*extract.SheetDoc{docISI, nil},
		err:  &apperr.TransientError{Detalle: "el extractor terminó con error", Salida: "traceback"},
	}
	_, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	isi := registrarPrueba(t, registry, models.TipoHorarioISI, []byte("isi"))
	rejilla := registrarPrueba(t, registry, models.TipoHorarioPrelistas, []byte("prelistas"))

	_, err := orq.ProcessHorarios(context.Background(), isi, rejilla)
	require.ErrorIs(t, err, apperr.ErrTransient)

	// ninguno de los dos queda PENDIENTE
	for _, id := range []uint{isi.ID, rejilla.ID} {
		actual, err := registry.Buscar(id)
		require.NoError(t, err)
		assert.Equal(t, models.EstadoError, actual.EstadoProceso, "la pareja debe compartir el desenlace")
	}

	// el que falló lleva el PARSE/ERROR; su pareja lleva el espejo
	assert.Len(t, eventosDe(t, audit, rejilla.ID, models.EtapaParse, models.AuditError), 1)
	espejo := eventosDe(t, audit, isi.ID, models.EtapaIngesta, models.AuditError)
	require.Len(t, espejo, 1)
	assert.Contains(t, espejo[0].Detalle, "abortado por falla")
}

func TestProcessHorariosFallaDelPrimerParseoCompartida(t *testing.T) {
	sheets := &sheetsStub{
		docs: []*extract.SheetDoc{nil},
		err:  &apperr.TransientError{Detalle: "el extractor terminó con error"},
	}
	_, registry, audit, orq := nuevaInfra(t, sheets, &pdfStub{})

	isi := registrarPrueba(t, registry, models.TipoHorarioISI, []byte("isi"))
	rejilla := registrarPrueba(t, registry, models.TipoHorarioPrelistas, []byte("prelistas"))

	_, err := orq.ProcessHorarios(context.Background(), isi, rejilla)
	require.ErrorIs(t, err, apperr.ErrTransient)

	for _, id := range []uint{isi.ID, rejilla.ID} {
		actual, err := registry.Buscar(id)
		require.NoError(t, err)
		assert.Equal(t, models.EstadoError, actual.EstadoProceso)
	}
	assert.Len(t, eventosDe(t, audit, isi.ID, models.EtapaParse, models.AuditError), 1)
	assert.Len(t, eventosDe(t, audit, rejilla.ID, models.EtapaIngesta, models.AuditError), 1)
}

func TestProcessHorariosSinArchivos(t *testing.T) {
	_, _, _, orq := nuevaInfra(t, &sheetsStub{}, &pdfStub{})
	_, err := orq.ProcessHorarios(context.Background(), nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
