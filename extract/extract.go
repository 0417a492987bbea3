// Package extract define los contratos con los procesos extractores
// externos: el extractor de hojas de cálculo devuelve {meta, rows[]} y
// el extractor de PDF devuelve {ok, ...campos, error}. Una salida no
// JSON o un código de salida distinto de cero se trata como falla
// transitoria y se captura cruda para la auditoría.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
)

/* ===================== Hojas de cálculo ===================== */

// SheetMeta es el contexto a nivel documento detectado por patrones de
// encabezado en la hoja.
type SheetMeta struct {
	CodigoMateria   string `json:"codigo_materia"`
	NombreMateria   string `json:"nombre_materia"`
	ClaveGrupo      string `json:"clave_grupo"`
	Ubicacion       string `json:"ubicacion"`
	Mes             string `json:"mes"`
	PeriodoEtiqueta string `json:"periodo"`
}

// SheetRow es una fila de datos con su índice estable para diagnóstico.
type SheetRow struct {
	RowIndex int               `json:"rowIndex"`
	Fields   map[string]string `json:"fields"`
}

// Campo devuelve el valor recortado de un campo de la fila.
func (r SheetRow) Campo(nombre string) string {
	return strings.TrimSpace(r.Fields[nombre])
}

// SheetDoc es el documento estructurado que entrega el extractor.
type SheetDoc struct {
	Meta SheetMeta  `json:"meta"`
	Rows []SheetRow `json:"rows"`
}

// SheetParser abstrae al extractor de hojas para poder sustituirlo en
// pruebas.
type SheetParser interface {
	Parse(ctx context.Context, path string) (*SheetDoc, error)
}

// SheetClient invoca el extractor de hojas como subproceso.
type SheetClient struct {
	Cmd string
}

func (c *SheetClient) Parse(ctx context.Context, path string) (*SheetDoc, error) {
	salida, err := correr(ctx, c.Cmd, path)
	if err != nil {
		return nil, err
	}
	var doc SheetDoc
	if err := json.Unmarshal(salida, &doc); err != nil {
		return nil, &apperr.TransientError{Detalle: "salida no JSON del extractor de hojas", Salida: recortar(salida)}
	}
	return &doc, nil
}

/* ===================== PDF ===================== */

// KardexEntrada es un renglón de kardex extraído del PDF.
type KardexEntrada struct {
	CicloCompacto string   `json:"ciclo"`
	CodigoMateria string   `json:"codigo_materia"`
	NombreMateria string   `json:"nombre_materia"`
	Creditos      int      `json:"creditos"`
	Calificacion  *float64 `json:"calificacion"`
	Estatus       string   `json:"estatus"`
}

// KardexDoc es el kardex estructurado de un alumno.
type KardexDoc struct {
	Matricula      string          `json:"matricula"`
	Expediente     string          `json:"expediente"`
	NombreCompleto string          `json:"nombre"`
	PlanNombre     string          `json:"plan_nombre"`
	PlanVersion    string          `json:"plan_version"`
	Promedio       float64         `json:"promedio"`
	TotalCreditos  int             `json:"total_creditos"`
	Entradas       []KardexEntrada `json:"entradas"`
}

// PlanMateria es una materia dentro de un plan de estudios extraído.
type PlanMateria struct {
	Codigo        string `json:"codigo"`
	Nombre        string `json:"nombre"`
	Creditos      int    `json:"creditos"`
	Clasificacion string `json:"clasificacion"`
	Semestre      int    `json:"semestre"`
}

// PlanDoc es un plan de estudios estructurado.
type PlanDoc struct {
	Nombre             string        `json:"nombre"`
	Version            string        `json:"version"`
	TotalCreditos      int           `json:"total_creditos"`
	SemestresSugeridos int           `json:"semestres_sugeridos"`
	Materias           []PlanMateria `json:"materias"`
}

// PDFResult es la envolvente que devuelve el extractor de PDF.
type PDFResult struct {
	OK     bool       `json:"ok"`
	Error  string     `json:"error,omitempty"`
	Kardex *KardexDoc `json:"kardex,omitempty"`
	Plan   *PlanDoc   `json:"plan,omitempty"`
}

// PDFParser abstrae al extractor de PDF.
type PDFParser interface {
	Extract(ctx context.Context, path string) (*PDFResult, error)
}

// PDFClient invoca el extractor de PDF como subproceso.
type PDFClient struct {
	Cmd   string
	Debug bool
	OCR   bool
}

func (c *PDFClient) Extract(ctx context.Context, path string) (*PDFResult, error) {
	args := []string{path}
	if c.Debug {
		args = append(args, "--debug")
	}
	if c.OCR {
		args = append(args, "--ocr")
	}
	salida, err := correr(ctx, c.Cmd, args...)
	if err != nil {
		return nil, err
	}
	var res PDFResult
	if err := json.Unmarshal(salida, &res); err != nil {
		return nil, &apperr.TransientError{Detalle: "salida no JSON del extractor de PDF", Salida: recortar(salida)}
	}
	if !res.OK {
		return nil, &apperr.TransientError{Detalle: "el extractor de PDF reportó error", Salida: res.Error}
	}
	return &res, nil
}

/* ===================== Subproceso ===================== */

func correr(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, cmd, args...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	if err := proc.Run(); err != nil {
		return nil, &apperr.TransientError{
			Detalle: "el extractor terminó con error: " + err.Error(),
			Salida:  recortar(append(stdout.Bytes(), stderr.Bytes()...)),
		}
	}
	return stdout.Bytes(), nil
}

// recortar limita la salida cruda capturada en el detalle de auditoría.
func recortar(b []byte) string {
	const max = 2000
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}
