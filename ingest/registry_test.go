package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

func TestRegisterDedupPorHash(t *testing.T) {
	db, registry, audit, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	contenido := []byte("mismo contenido de extracto")
	meta := UploadMeta{Tipo: models.TipoEstructura, NombreArchivo: "alumnos.xlsx", Usuario: "ana"}

	r1, err := registry.Register(contenido, meta)
	require.NoError(t, err)
	assert.False(t, r1.Dedup)
	assert.Equal(t, models.EstadoPendiente, r1.Archivo.EstadoProceso)

	r2, err := registry.Register(contenido, meta)
	require.NoError(t, err)
	assert.True(t, r2.Dedup)
	assert.Equal(t, r1.Archivo.ID, r2.Archivo.ID)

	var cuenta int64
	db.Model(&models.ArchivoCargado{}).Count(&cuenta)
	assert.EqualValues(t, 1, cuenta)

	// exactamente un evento de duplicado, sobre el archivo original
	uploads := eventosDe(t, audit, r1.Archivo.ID, models.EtapaUpload, models.AuditOK)
	require.Len(t, uploads, 2)
	assert.Contains(t, uploads[1].Detalle, "duplicado")
}

func TestRegisterContenidosDistintos(t *testing.T) {
	db, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	a := registrarPrueba(t, registry, models.TipoEstructura, []byte("uno"))
	b := registrarPrueba(t, registry, models.TipoEstructura, []byte("dos"))
	assert.NotEqual(t, a.ID, b.ID)

	var cuenta int64
	db.Model(&models.ArchivoCargado{}).Count(&cuenta)
	assert.EqualValues(t, 2, cuenta)
}

func TestRegisterForceReutilizaRegistro(t *testing.T) {
	_, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	contenido := []byte("contenido")
	a := registrarPrueba(t, registry, models.TipoKardex, contenido)

	res, err := registry.Register(contenido, UploadMeta{
		Tipo:          models.TipoKardex,
		NombreArchivo: "kardex.pdf",
		Force:         true,
	})
	require.NoError(t, err)
	assert.False(t, res.Dedup, "la re-ingesta forzada no debe reportarse como dedup")
	assert.Equal(t, a.ID, res.Archivo.ID)
}

func TestRegisterTipoDesconocido(t *testing.T) {
	_, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	_, err := registry.Register([]byte("x"), UploadMeta{Tipo: "NOMINA", NombreArchivo: "n.xlsx"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegisterGuardaHashYStoredName(t *testing.T) {
	_, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	a := registrarPrueba(t, registry, models.TipoEstructura, []byte("contenido"))
	assert.Len(t, a.Hash, 64) // sha256 en hex
	assert.True(t, strings.HasSuffix(a.StoredName, ".xlsx"))
	assert.NotEqual(t, a.NombreArchivo, a.StoredName)
	assert.EqualValues(t, len("contenido"), a.SizeBytes)
}

func TestMarkEstadoEsMonotono(t *testing.T) {
	_, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})

	a := registrarPrueba(t, registry, models.TipoEstructura, []byte("contenido"))

	// regresar a PENDIENTE nunca se permite
	err := registry.MarkEstado(a.ID, models.EstadoPendiente)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, registry.MarkEstado(a.ID, models.EstadoCompletado))
	actual, err := registry.Buscar(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EstadoCompletado, actual.EstadoProceso)
}

func TestMarkEstadoArchivoInexistente(t *testing.T) {
	_, registry, _, _ := nuevaInfra(t, &sheetsStub{}, &pdfStub{})
	err := registry.MarkEstado(999, models.EstadoError)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
