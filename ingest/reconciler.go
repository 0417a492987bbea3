package ingest

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/merge"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

// Summary acumula el resultado de reconciliar un lote: cuántas
// entidades se insertaron, cuántas cambiaron y cuántas ya estaban
// idénticas (sin escritura), más las advertencias por fila.
type Summary struct {
	Agregados    int      `json:"agregados"`
	Actualizados int      `json:"actualizados"`
	SinCambio    int      `json:"sin_cambio"`
	Advertencias []string `json:"advertencias"`
}

func (s *Summary) advertir(formato string, args ...any) {
	s.Advertencias = append(s.Advertencias, fmt.Sprintf(formato, args...))
}

func (s *Summary) String() string {
	return fmt.Sprintf("agregados=%d actualizados=%d sin_cambio=%d advertencias=%d",
		s.Agregados, s.Actualizados, s.SinCambio, len(s.Advertencias))
}

// aplicarDiff ejecuta la actualización solo si hay campos distintos y
// actualiza los contadores. updates debe traer únicamente los campos
// cuyo valor normalizado difiere del persistido.
func aplicarDiff(tx *gorm.DB, modelo any, updates map[string]any, s *Summary) error {
	if len(updates) == 0 {
		s.SinCambio++
		return nil
	}
	if err := tx.Model(modelo).Updates(updates).Error; err != nil {
		return apperr.NewPersistenceError("actualizar", err)
	}
	s.Actualizados++
	return nil
}

// ReplaceHorarios reemplaza el conjunto completo de franjas de un grupo.
// La identidad de una franja no es estable entre ingestas, así que se
// borra y reinserta en lugar de diffear franja por franja.
func ReplaceHorarios(tx *gorm.DB, grupoID uint, franjas []merge.Franja) error {
	if err := tx.Where("grupo_id = ?", grupoID).Delete(&models.Horario{}).Error; err != nil {
		return apperr.NewPersistenceError("borrar horarios", err)
	}
	for _, f := range franjas {
		h := models.Horario{
			GrupoID:    grupoID,
			DiaSemana:  strings.ToUpper(strings.TrimSpace(f.Dia)),
			HoraInicio: strings.TrimSpace(f.Inicio),
			HoraFin:    strings.TrimSpace(f.Fin),
			Aula:       strings.TrimSpace(f.Aula),
		}
		if err := tx.Create(&h).Error; err != nil {
			return apperr.NewPersistenceError("insertar horario", err)
		}
	}
	return nil
}

// franjasPersistidas lee las franjas actuales de un grupo en la misma
// forma normalizada que usa huellaFranjas.
func franjasPersistidas(tx *gorm.DB, grupoID uint) ([]merge.Franja, error) {
	var horarios []models.Horario
	if err := tx.Where("grupo_id = ?", grupoID).Find(&horarios).Error; err != nil {
		return nil, apperr.NewPersistenceError("leer horarios", err)
	}
	franjas := make([]merge.Franja, 0, len(horarios))
	for _, h := range horarios {
		franjas = append(franjas, merge.Franja{Dia: h.DiaSemana, Inicio: h.HoraInicio, Fin: h.HoraFin, Aula: h.Aula})
	}
	return franjas, nil
}

// huellaFranjas produce una huella independiente del orden para
// comparar conjuntos de franjas.
func huellaFranjas(franjas []merge.Franja) string {
	claves := make([]string, 0, len(franjas))
	for _, f := range franjas {
		claves = append(claves, strings.ToUpper(strings.TrimSpace(f.Dia))+"|"+
			strings.TrimSpace(f.Inicio)+"|"+strings.TrimSpace(f.Fin)+"|"+
			strings.ToUpper(strings.TrimSpace(f.Aula)))
	}
	sort.Strings(claves)
	return strings.Join(claves, ";")
}
