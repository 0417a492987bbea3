package resolver

import (
	"strings"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
)

// Partículas de unión que se pegan al token que las sigue al formar un
// apellido compuesto ("DE LA CRUZ", "DEL RIO", "VAN DER SAR"...).
var particulas = map[string]struct{}{
	"DE": {}, "DEL": {}, "LA": {}, "LAS": {}, "LOS": {},
	"DI": {}, "DU": {}, "VAN": {}, "VON": {}, "Y": {},
	"MAC": {}, "MC": {}, "DAS": {},
}

// NombrePartes es el resultado de descomponer un nombre completo.
type NombrePartes struct {
	Nombres         string
	ApellidoPaterno string
	ApellidoMaterno string
}

// Colapsar normaliza espacios: recorta y reduce espacios internos a uno.
func Colapsar(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitNombre descompone un nombre completo en (nombres, apellido
// paterno, apellido materno). El algoritmo absorbe partículas desde el
// final: el último token forma el apellido materno junto con las
// partículas que lo preceden, y se repite para el paterno. Los tokens
// restantes son los nombres de pila.
//
// Un solo token se rechaza: no se puede garantizar apellido no nulo.
func SplitNombre(completo string) (NombrePartes, error) {
	tokens := strings.Fields(strings.ToUpper(completo))

	switch len(tokens) {
	case 0:
		return NombrePartes{}, apperr.NewValidationError("nombre", 0, "nombre vacío")
	case 1:
		return NombrePartes{}, apperr.NewValidationError("nombre", 0, "un solo token; no se puede derivar apellido")
	case 2:
		return NombrePartes{Nombres: tokens[0], ApellidoPaterno: tokens[1]}, nil
	}

	// absorbe el token final más sus partículas, sin bajar de min tokens
	absorber := func(min int) string {
		j := len(tokens) - 1
		for j-1 >= min {
			if _, ok := particulas[tokens[j-1]]; !ok {
				break
			}
			j--
		}
		ap := strings.Join(tokens[j:], " ")
		tokens = tokens[:j]
		return ap
	}

	materno := absorber(1) // deja al menos un token para el paterno
	paterno := absorber(0)

	partes := NombrePartes{
		Nombres:         strings.Join(tokens, " "),
		ApellidoPaterno: paterno,
		ApellidoMaterno: materno,
	}

	// Si las partículas se comieron todos los nombres de pila, el
	// apellido paterno dona su primer token de regreso.
	if partes.Nombres == "" {
		if campos := strings.Fields(partes.ApellidoPaterno); len(campos) > 1 {
			partes.Nombres = campos[0]
			partes.ApellidoPaterno = strings.Join(campos[1:], " ")
		} else {
			// paterno de un solo token: el materno pasa a paterno
			partes.Nombres = partes.ApellidoPaterno
			partes.ApellidoPaterno = partes.ApellidoMaterno
			partes.ApellidoMaterno = ""
		}
	}
	return partes, nil
}
