// Package merge combina los dos extractos de horarios (el tabular tipo
// ISI, con NRC y sección explícitos, y el de rejilla de prelistas, con
// columnas fijas por día) en un conjunto canónico de registros de
// horario listos para resolver y reconciliar.
package merge

import (
	"strings"
)

// Franja es una franja horaria de un registro de horario.
type Franja struct {
	Dia    string `json:"dia"`    // LUN..SAB
	Inicio string `json:"inicio"` // HH:MM
	Fin    string `json:"fin"`
	Aula   string `json:"aula"`
}

// Registro es un hecho de horario descrito por una o ambas fuentes.
type Registro struct {
	PeriodoEtiqueta string   `json:"periodo"`
	CodigoMateria   string   `json:"codigo_materia"`
	NombreMateria   string   `json:"nombre_materia"`
	Clave           string   `json:"clave"` // sección
	NRC             string   `json:"nrc"`
	Aula            string   `json:"aula"`
	Profesor        string   `json:"profesor"`
	NumEmpleado     string   `json:"num_empleado"`
	Cupo            int      `json:"cupo"`
	Franjas         []Franja `json:"franjas"`
}

const nrcPlaceholder = "-"

// llaveCanonica arma la llave (periodo, materia en mayúsculas, sección,
// NRC o marcador).
func llaveCanonica(periodo string, r Registro) string {
	nrc := strings.TrimSpace(r.NRC)
	if nrc == "" {
		nrc = nrcPlaceholder
	}
	return periodo + "|" + strings.ToUpper(strings.TrimSpace(r.NombreMateria)) + "|" +
		strings.ToUpper(strings.TrimSpace(r.Clave)) + "|" + nrc
}

// Combinar fusiona ambos extractos. El tabular siembra el mapa canónico
// primero porque trae identificadores más fuertes; los registros de la
// rejilla solo rellenan campos faltantes (franjas, aula, profesor) de un
// canónico con el mismo nombre de materia, o entran como registros
// propios etiquetados con el periodo resuelto. Un campo ya poblado
// nunca se sobreescribe.
func Combinar(tabular, rejilla []Registro, periodoEtiqueta string) []Registro {
	canon := make(map[string]*Registro, len(tabular))
	var orden []string

	for _, r := range tabular {
		r := r
		if strings.TrimSpace(r.PeriodoEtiqueta) == "" {
			r.PeriodoEtiqueta = periodoEtiqueta
		}
		k := llaveCanonica(r.PeriodoEtiqueta, r)
		if _, ok := canon[k]; ok {
			continue // duplicado dentro del propio extracto
		}
		canon[k] = &r
		orden = append(orden, k)
	}

	for _, g := range rejilla {
		g := g
		if candidato := buscarPorMateria(canon, orden, g.NombreMateria); candidato != nil {
			rellenar(candidato, &g)
			continue
		}
		g.PeriodoEtiqueta = periodoEtiqueta
		k := llaveCanonica(periodoEtiqueta, g)
		if _, ok := canon[k]; ok {
			continue
		}
		canon[k] = &g
		orden = append(orden, k)
	}

	resultado := make([]Registro, 0, len(orden))
	for _, k := range orden {
		resultado = append(resultado, *canon[k])
	}
	return resultado
}

func buscarPorMateria(canon map[string]*Registro, orden []string, nombre string) *Registro {
	for _, k := range orden {
		if strings.EqualFold(strings.TrimSpace(canon[k].NombreMateria), strings.TrimSpace(nombre)) {
			return canon[k]
		}
	}
	return nil
}

// rellenar copia de src solo los campos que dst no tiene: el primero en
// escribir gana campo por campo.
func rellenar(dst, src *Registro) {
	if len(dst.Franjas) == 0 && len(src.Franjas) > 0 {
		dst.Franjas = src.Franjas
	}
	if dst.Aula == "" && src.Aula != "" {
		dst.Aula = src.Aula
	}
	if dst.Profesor == "" && src.Profesor != "" {
		dst.Profesor = src.Profesor
		if dst.NumEmpleado == "" {
			dst.NumEmpleado = src.NumEmpleado
		}
	}
}
