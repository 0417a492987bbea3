package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/saulfer1109/sistema-PDS2-sub000/merge"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
	"github.com/saulfer1109/sistema-PDS2-sub000/resolver"
)

func grupoDePrueba(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	res := resolver.New(db)
	p, err := res.ResolverPeriodo("2025-1")
	require.NoError(t, err)
	materiaID, err := res.ResolverMateria("350", "Cálculo", 8, "", nil)
	require.NoError(t, err)
	grupoID, err := res.ResolverGrupo(materiaID, p.ID, "1A", 30, false)
	require.NoError(t, err)
	return grupoID
}

func TestReplaceHorariosReemplazaElConjunto(t *testing.T) {
	db := abrirDB(t)
	grupoID := grupoDePrueba(t, db)

	franjas := []merge.Franja{
		{Dia: "LUN", Inicio: "07:00", Fin: "08:30", Aula: "A201"},
		{Dia: "MIE", Inicio: "07:00", Fin: "08:30", Aula: "A201"},
	}
	require.NoError(t, ReplaceHorarios(db, grupoID, franjas))

	var cuenta int64
	db.Model(&models.Horario{}).Where("grupo_id = ?", grupoID).Count(&cuenta)
	assert.EqualValues(t, 2, cuenta)

	// re-ingesta con lista reducida: queda exactamente la lista nueva
	require.NoError(t, ReplaceHorarios(db, grupoID, franjas[:1]))
	var restantes []models.Horario
	require.NoError(t, db.Where("grupo_id = ?", grupoID).Find(&restantes).Error)
	require.Len(t, restantes, 1)
	assert.Equal(t, "LUN", restantes[0].DiaSemana)
}

func TestHuellaFranjasIgnoraOrden(t *testing.T) {
	a := []merge.Franja{
		{Dia: "LUN", Inicio: "07:00", Fin: "08:30", Aula: "A201"},
		{Dia: "MIE", Inicio: "07:00", Fin: "08:30", Aula: "A201"},
	}
	b := []merge.Franja{a[1], a[0]}
	assert.Equal(t, huellaFranjas(a), huellaFranjas(b))
	assert.NotEqual(t, huellaFranjas(a), huellaFranjas(a[:1]))
}

func TestAplicarDiffContadores(t *testing.T) {
	db := abrirDB(t)
	res := resolver.New(db)
	materiaID, err := res.ResolverMateria("350", "Cálculo", 8, "", nil)
	require.NoError(t, err)

	var m models.Materia
	require.NoError(t, db.First(&m, materiaID).Error)

	resumen := &Summary{}
	require.NoError(t, aplicarDiff(db, &m, map[string]any{}, resumen))
	assert.Equal(t, 1, resumen.SinCambio)
	assert.Zero(t, resumen.Actualizados)

	require.NoError(t, aplicarDiff(db, &m, map[string]any{"creditos": 10}, resumen))
	assert.Equal(t, 1, resumen.Actualizados)

	require.NoError(t, db.First(&m, materiaID).Error)
	assert.Equal(t, 10, m.Creditos)
}
