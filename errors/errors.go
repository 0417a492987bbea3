// Package errors define los tipos de error del pipeline de ingesta.
// Permiten distinguir programáticamente validaciones por fila, padres
// faltantes, duplicados de contenido y fallas del extractor externo.
package errors

import (
	"errors"
	"fmt"
)

// Errores centinela del sistema.
var (
	// ErrValidation: una fila no trae un campo requerido.
	ErrValidation = errors.New("fila inválida")

	// ErrNotFound: un padre requerido no existe y no se permite crearlo.
	ErrNotFound = errors.New("entidad no encontrada")

	// ErrDuplicate: colisión de hash de contenido. No es una falla,
	// es un corto-circuito de control de flujo.
	ErrDuplicate = errors.New("archivo duplicado")

	// ErrTransient: el proceso extractor externo falló o devolvió
	// salida malformada.
	ErrTransient = errors.New("falla transitoria del extractor")

	// ErrPersistence: violación de restricción u otra falla de
	// almacenamiento no anticipada.
	ErrPersistence = errors.New("falla de persistencia")
)

// ValidationError es una falla de validación de una fila concreta.
type ValidationError struct {
	Campo   string
	Fila    int
	Mensaje string
}

func (e *ValidationError) Error() string {
	if e.Fila > 0 {
		return fmt.Sprintf("fila %d: campo %s: %s", e.Fila, e.Campo, e.Mensaje)
	}
	if e.Campo != "" {
		return fmt.Sprintf("campo %s: %s", e.Campo, e.Mensaje)
	}
	return e.Mensaje
}

// Is permite errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError crea una ValidationError para la fila dada (0 si no aplica).
func NewValidationError(campo string, fila int, mensaje string) *ValidationError {
	return &ValidationError{Campo: campo, Fila: fila, Mensaje: mensaje}
}

// NotFoundError indica que una entidad requerida no existe.
type NotFoundError struct {
	Entidad string
	Llave   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Entidad, e.Llave)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entidad, llave string) *NotFoundError {
	return &NotFoundError{Entidad: entidad, Llave: llave}
}

// DuplicateError indica que el contenido ya estaba registrado.
type DuplicateError struct {
	Hash      string
	ArchivoID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("contenido ya registrado como archivo %d (hash %s)", e.ArchivoID, e.Hash)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// TransientError captura la salida cruda del extractor externo para auditoría.
type TransientError struct {
	Detalle string
	Salida  string
}

func (e *TransientError) Error() string {
	if e.Salida != "" {
		return fmt.Sprintf("%s: %s", e.Detalle, e.Salida)
	}
	return e.Detalle
}

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// PersistenceError envuelve una falla de almacenamiento.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistencia: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
