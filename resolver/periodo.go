package resolver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// DecodificarCicloCompacto interpreta un código de ciclo de 4 dígitos
// como los que traen los kardex: los dos primeros dígitos son el año
// dentro del siglo y el tercero el ciclo. "2513" → 2025, ciclo 1.
func DecodificarCicloCompacto(codigo string) (anio, ciclo int, err error) {
	codigo = strings.TrimSpace(codigo)
	if len(codigo) != 4 {
		return 0, 0, apperr.NewValidationError("ciclo", 0, fmt.Sprintf("código compacto inválido %q", codigo))
	}
	for _, r := range codigo {
		if r < '0' || r > '9' {
			return 0, 0, apperr.NewValidationError("ciclo", 0, fmt.Sprintf("código compacto inválido %q", codigo))
		}
	}
	yy, _ := strconv.Atoi(codigo[:2])
	c := int(codigo[2] - '0')
	if c != 1 && c != 2 {
		return 0, 0, apperr.NewValidationError("ciclo", 0, fmt.Sprintf("ciclo fuera de rango en %q", codigo))
	}
	return 2000 + yy, c, nil
}

// ParseEtiqueta valida y separa una etiqueta "YYYY-C".
func ParseEtiqueta(etiqueta string) (anio, ciclo int, err error) {
	partes := strings.SplitN(strings.TrimSpace(etiqueta), "-", 2)
	if len(partes) != 2 {
		return 0, 0, apperr.NewValidationError("periodo", 0, fmt.Sprintf("etiqueta inválida %q", etiqueta))
	}
	anio, err1 := strconv.Atoi(partes[0])
	ciclo, err2 := strconv.Atoi(partes[1])
	if err1 != nil || err2 != nil || anio < 1900 || (ciclo != 1 && ciclo != 2) {
		return 0, 0, apperr.NewValidationError("periodo", 0, fmt.Sprintf("etiqueta inválida %q", etiqueta))
	}
	return anio, ciclo, nil
}

// fechasCiclo sintetiza las fechas de inicio y fin según la convención
// de calendario fija: ciclo 1 enero-junio, ciclo 2 agosto-diciembre.
func fechasCiclo(anio, ciclo int) (inicio, fin time.Time) {
	if ciclo == 1 {
		inicio = time.Date(anio, time.January, 15, 0, 0, 0, 0, time.UTC)
		fin = time.Date(anio, time.June, 30, 0, 0, 0, 0, time.UTC)
	} else {
		inicio = time.Date(anio, time.August, 1, 0, 0, 0, 0, time.UTC)
		fin = time.Date(anio, time.December, 15, 0, 0, 0, 0, time.UTC)
	}
	return inicio, fin
}

// EtiquetaActual infiere el periodo vigente del reloj inyectado cuando
// ninguna fuente trae etiqueta: enero-junio → ciclo 1, resto → ciclo 2.
func (r *Resolver) EtiquetaActual() string {
	ahora := r.Clock()
	ciclo := 1
	if ahora.Month() > time.June {
		ciclo = 2
	}
	return fmt.Sprintf("%04d-%d", ahora.Year(), ciclo)
}

// ResolverPeriodo busca o crea el periodo de la etiqueta dada. Con
// etiqueta vacía se infiere el periodo vigente del reloj.
func (r *Resolver) ResolverPeriodo(etiqueta string) (*models.Periodo, error) {
	etiqueta = strings.TrimSpace(etiqueta)
	if etiqueta == "" {
		etiqueta = r.EtiquetaActual()
	}

	if p, ok := r.periodos[etiqueta]; ok {
		return p, nil
	}

	var p models.Periodo
	err := r.db.Where("etiqueta = ?", etiqueta).First(&p).Error
	if err == nil {
		r.periodos[etiqueta] = &p
		return &p, nil
	}
	if !esNoEncontrado(err) {
		return nil, apperr.NewPersistenceError("buscar periodo", err)
	}

	anio, ciclo, err := ParseEtiqueta(etiqueta)
	if err != nil {
		return nil, err
	}
	inicio, fin := fechasCiclo(anio, ciclo)
	p = models.Periodo{Anio: anio, Ciclo: ciclo, Etiqueta: etiqueta, FechaInicio: inicio, FechaFin: fin}
	if err := r.db.Create(&p).Error; err != nil {
		return nil, apperr.NewPersistenceError("crear periodo", err)
	}
	r.periodos[etiqueta] = &p
	return &p, nil
}

// ResolverPeriodoCompacto resuelve un periodo a partir del código de
// ciclo compacto de 4 dígitos.
func (r *Resolver) ResolverPeriodoCompacto(codigo string) (*models.Periodo, error) {
	anio, ciclo, err := DecodificarCicloCompacto(codigo)
	if err != nil {
		return nil, err
	}
	return r.ResolverPeriodo(fmt.Sprintf("%04d-%d", anio, ciclo))
}
