package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saulfer1109/sistema-PDS2-sub000/database"
	"github.com/saulfer1109/sistema-PDS2-sub000/extract"
	"github.com/saulfer1109/sistema-PDS2-sub000/logging"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

func abrirDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// sheetsStub entrega documentos en el orden en que se parsean. Un doc
// nil en la cola hace fallar esa llamada con err; con la cola vacía,
// err (si está puesto) falla todas las llamadas.
type sheetsStub struct {
	docs []*extract.SheetDoc
	err  error
}

func (s *sheetsStub) Parse(_ context.Context, _ string) (*extract.SheetDoc, error) {
	if len(s.docs) > 0 {
		doc := s.docs[0]
		s.docs = s.docs[1:]
		if doc == nil {
			return nil, s.err
		}
		return doc, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return &extract.SheetDoc{}, nil
}

type pdfStub struct {
	res *extract.PDFResult
	err error
}

func (s *pdfStub) Extract(_ context.Context, _ string) (*extract.PDFResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

// infraestructura de prueba: base, registro, auditoría y orquestador
// con extractores sustituidos.
func nuevaInfra(t *testing.T, sheets extract.SheetParser, pdf extract.PDFParser) (*gorm.DB, *FileRegistry, *AuditTrail, *Orchestrator) {
	t.Helper()
	db := abrirDB(t)
	audit := NewAuditTrail(db)
	registry := NewFileRegistry(db, audit, t.TempDir())
	orq := NewOrchestrator(db, registry, audit, sheets, pdf, logging.Nop())
	return db, registry, audit, orq
}

func registrarPrueba(t *testing.T, registry *FileRegistry, tipo string, contenido []byte) *models.ArchivoCargado {
	t.Helper()
	res, err := registry.Register(contenido, UploadMeta{
		Tipo:          tipo,
		NombreArchivo: "extracto.xlsx",
		Usuario:       "pruebas",
	})
	require.NoError(t, err)
	require.False(t, res.Dedup)
	return res.Archivo
}

func fila(idx int, campos map[string]string) extract.SheetRow {
	return extract.SheetRow{RowIndex: idx, Fields: campos}
}

func eventosDe(t *testing.T, audit *AuditTrail, archivoID uint, etapa, estado string) []models.AuditoriaCarga {
	t.Helper()
	eventos, err := audit.Timeline(archivoID)
	require.NoError(t, err)
	var out []models.AuditoriaCarga
	for _, ev := range eventos {
		if ev.Etapa == etapa && ev.Estado == estado {
			out = append(out, ev)
		}
	}
	return out
}
