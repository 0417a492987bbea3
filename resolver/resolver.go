// Package resolver implementa la resolución buscar-o-crear de entidades
// de referencia (periodo, materia, grupo, profesor, alumno) a partir de
// campos poco estructurados de los extractos institucionales.
//
// Un Resolver vive lo que dura una corrida de ingesta: su caché en
// memoria garantiza que dos filas de la misma corrida que refieren a la
// misma entidad sintetizada no la creen dos veces.
package resolver

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperr "github.com/saulfer1109/sistema-PDS2-sub000/errors"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

type Resolver struct {
	db *gorm.DB

	// Clock se inyecta para poder fijar la inferencia de "periodo
	// vigente" en pruebas.
	Clock func() time.Time

	periodos   map[string]*models.Periodo
	materias   map[string]uint
	grupos     map[string]uint
	profesores map[string]uint
	alumnos    map[string]uint
}

// New crea un resolutor para una corrida de ingesta sobre db (puede ser
// una transacción).
func New(db *gorm.DB) *Resolver {
	return &Resolver{
		db:         db,
		Clock:      time.Now,
		periodos:   map[string]*models.Periodo{},
		materias:   map[string]uint{},
		grupos:     map[string]uint{},
		profesores: map[string]uint{},
		alumnos:    map[string]uint{},
	}
}

func esNoEncontrado(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

/* ===================== Materia ===================== */

// NormalizarCodigoMateria extrae la porción numérica del código y la
// rellena con ceros a la izquierda hasta 5 dígitos. Un código sin
// dígitos se conserva colapsado y en mayúsculas.
func NormalizarCodigoMateria(raw string) string {
	var digitos strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digitos.WriteRune(r)
		}
	}
	d := digitos.String()
	if d == "" {
		return strings.ToUpper(Colapsar(raw))
	}
	for len(d) < 5 {
		d = "0" + d
	}
	return d
}

// ClasificarMateria mapea la clasificación libre de la fuente al
// vocabulario fijo: OPTATIVA/ELECTIVA/SELECTIVA → optativa, el resto
// obligatoria.
func ClasificarMateria(raw string) string {
	u := strings.ToUpper(raw)
	for _, kw := range []string{"OPTATIVA", "ELECTIVA", "SELECTIVA"} {
		if strings.Contains(u, kw) {
			return models.MateriaOptativa
		}
	}
	return models.MateriaObligatoria
}

// ResolverMateria busca por código normalizado o crea la materia.
func (r *Resolver) ResolverMateria(codigo, nombre string, creditos int, clasificacion string, planID *uint) (uint, error) {
	cod := NormalizarCodigoMateria(codigo)
	if cod == "" {
		return 0, apperr.NewValidationError("codigo", 0, "materia sin código")
	}
	if id, ok := r.materias[cod]; ok {
		return id, nil
	}

	var m models.Materia
	err := r.db.Where("codigo = ?", cod).First(&m).Error
	if err == nil {
		r.materias[cod] = m.ID
		return m.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar materia", err)
	}

	m = models.Materia{
		Codigo:        cod,
		Nombre:        Colapsar(nombre),
		Creditos:      creditos,
		Tipo:          ClasificarMateria(clasificacion),
		PlanEstudioID: planID,
	}
	if err := r.db.Create(&m).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear materia", err)
	}
	r.materias[cod] = m.ID
	return m.ID, nil
}

// ResolverMateriaPorNombre se usa para extractos de horario que no
// traen código de materia: busca por nombre colapsado sin distinguir
// mayúsculas y, si no existe, crea la materia con un código sintetizado
// determinista a partir del nombre.
func (r *Resolver) ResolverMateriaPorNombre(nombre string, planID *uint) (uint, error) {
	nom := Colapsar(nombre)
	if nom == "" {
		return 0, apperr.NewValidationError("nombre", 0, "materia sin nombre")
	}
	llave := "n:" + strings.ToUpper(nom)
	if id, ok := r.materias[llave]; ok {
		return id, nil
	}

	var m models.Materia
	err := r.db.Where("LOWER(nombre) = ?", strings.ToLower(nom)).First(&m).Error
	if err == nil {
		r.materias[llave] = m.ID
		return m.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar materia", err)
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(nom)))
	m = models.Materia{
		Codigo:        fmt.Sprintf("X%05d", h.Sum32()%100000),
		Nombre:        nom,
		Tipo:          models.MateriaObligatoria,
		PlanEstudioID: planID,
	}
	if err := r.db.Create(&m).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear materia", err)
	}
	r.materias[llave] = m.ID
	return m.ID, nil
}

/* ===================== Grupo ===================== */

// SintetizarClaveGrupo deriva una clave de sección determinista cuando
// la fuente no trae identificador de grupo, de modo que re-ingestar el
// mismo extracto resuelva al mismo grupo.
func SintetizarClaveGrupo(nombreMateria, aula string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(Colapsar(nombreMateria)) + "|" + strings.ToUpper(Colapsar(aula))))
	return fmt.Sprintf("G%06X", h.Sum32()&0xFFFFFF)
}

// ResolverGrupo busca o crea el grupo (materia, periodo, clave).
// provisional marca grupos con clave sintetizada.
func (r *Resolver) ResolverGrupo(materiaID, periodoID uint, clave string, cupo int, provisional bool) (uint, error) {
	clave = strings.ToUpper(Colapsar(clave))
	if clave == "" {
		return 0, apperr.NewValidationError("clave_grupo", 0, "grupo sin clave")
	}
	llave := fmt.Sprintf("%d|%d|%s", materiaID, periodoID, clave)
	if id, ok := r.grupos[llave]; ok {
		return id, nil
	}

	var g models.Grupo
	err := r.db.Where("materia_id = ? AND periodo_id = ? AND clave_grupo = ?", materiaID, periodoID, clave).First(&g).Error
	if err == nil {
		r.grupos[llave] = g.ID
		return g.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar grupo", err)
	}

	g = models.Grupo{MateriaID: materiaID, PeriodoID: periodoID, ClaveGrupo: clave, Cupo: cupo, Provisional: provisional}
	if err := r.db.Create(&g).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear grupo", err)
	}
	r.grupos[llave] = g.ID
	return g.ID, nil
}

// BuscarGrupo es la variante estricta: nunca crea. Las listas de
// asistencia la usan porque un grupo debe existir desde una carga
// estructural o de horarios previa.
func (r *Resolver) BuscarGrupo(materiaID, periodoID uint, clave string) (uint, error) {
	clave = strings.ToUpper(Colapsar(clave))
	var g models.Grupo
	err := r.db.Where("materia_id = ? AND periodo_id = ? AND clave_grupo = ?", materiaID, periodoID, clave).First(&g).Error
	if esNoEncontrado(err) {
		return 0, apperr.NewNotFoundError("grupo", clave)
	}
	if err != nil {
		return 0, apperr.NewPersistenceError("buscar grupo", err)
	}
	return g.ID, nil
}

/* ===================== Profesor ===================== */

func sintetizarCorreo(p NombrePartes) string {
	limpiar := func(s string) string {
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, " ", "")
	}
	usuario := limpiar(strings.Fields(p.Nombres)[0]) + "." + limpiar(p.ApellidoPaterno)
	return usuario + "@docentes.local"
}

// ResolverProfesor busca por número de empleado y, en su defecto, por
// (nombre, apellido paterno) sin distinguir mayúsculas. Si no hay
// coincidencia crea un profesor provisional con correo sintetizado y
// una identidad de acceso con rol PROFESOR.
func (r *Resolver) ResolverProfesor(numEmpleado *string, nombreCompleto string) (uint, error) {
	partes, err := SplitNombre(nombreCompleto)
	if err != nil {
		return 0, err
	}

	var llave string
	if numEmpleado != nil && strings.TrimSpace(*numEmpleado) != "" {
		ne := strings.TrimSpace(*numEmpleado)
		numEmpleado = &ne
		llave = "e:" + ne
	} else {
		numEmpleado = nil
		llave = "n:" + strings.ToLower(partes.Nombres+"|"+partes.ApellidoPaterno)
	}
	if id, ok := r.profesores[llave]; ok {
		return id, nil
	}

	var prof models.Profesor
	if numEmpleado != nil {
		err = r.db.Where("num_empleado = ?", *numEmpleado).First(&prof).Error
	} else {
		err = r.db.Where("LOWER(nombre) = ? AND LOWER(apellido_paterno) = ?",
			strings.ToLower(partes.Nombres), strings.ToLower(partes.ApellidoPaterno)).First(&prof).Error
	}
	if err == nil {
		r.profesores[llave] = prof.ID
		return prof.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar profesor", err)
	}

	correo := sintetizarCorreo(partes)
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return 0, apperr.NewPersistenceError("provisionar usuario", err)
	}
	cuenta := models.Usuario{
		Username: correo,
		Password: string(hash),
		Rol:      models.RolProfesor,
		Nombre:   Colapsar(strings.ToUpper(nombreCompleto)),
	}
	if err := r.db.Create(&cuenta).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear usuario de profesor", err)
	}

	prof = models.Profesor{
		Nombre:          partes.Nombres,
		ApellidoPaterno: partes.ApellidoPaterno,
		ApellidoMaterno: partes.ApellidoMaterno,
		Correo:          correo,
		NumEmpleado:     numEmpleado,
		UsuarioID:       &cuenta.ID,
		Provisional:     true,
	}
	if err := r.db.Create(&prof).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear profesor", err)
	}
	r.profesores[llave] = prof.ID
	return prof.ID, nil
}

/* ===================== Alumno ===================== */

// AlumnoInput son los campos mínimos para resolver o crear un alumno.
type AlumnoInput struct {
	Expediente      string
	Matricula       string
	NombreCompleto  string
	Sexo            string
	FechaNacimiento *time.Time
	EstadoAcademico string
	PlanEstudioID   *uint
	TotalCreditos   int
	Promedio        float64
}

// ResolverAlumno busca por expediente o crea el alumno. La creación
// exige que el nombre se descomponga con apellido no vacío; una fila
// que no lo logre se rechaza con ValidationError.
func (r *Resolver) ResolverAlumno(in AlumnoInput) (uint, error) {
	exp := strings.TrimSpace(in.Expediente)
	if exp == "" {
		return 0, apperr.NewValidationError("expediente", 0, "alumno sin expediente")
	}
	if id, ok := r.alumnos[exp]; ok {
		return id, nil
	}

	var a models.Alumno
	err := r.db.Where("expediente = ?", exp).First(&a).Error
	if err == nil {
		r.alumnos[exp] = a.ID
		return a.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar alumno", err)
	}

	partes, err := SplitNombre(in.NombreCompleto)
	if err != nil {
		return 0, err
	}
	a = models.Alumno{
		Matricula:       strings.TrimSpace(in.Matricula),
		Expediente:      exp,
		Nombre:          partes.Nombres,
		ApellidoPaterno: partes.ApellidoPaterno,
		ApellidoMaterno: partes.ApellidoMaterno,
		Sexo:            strings.ToUpper(strings.TrimSpace(in.Sexo)),
		FechaNacimiento: in.FechaNacimiento,
		EstadoAcademico: strings.ToUpper(Colapsar(in.EstadoAcademico)),
		PlanEstudioID:   in.PlanEstudioID,
		TotalCreditos:   in.TotalCreditos,
		Promedio:        in.Promedio,
	}
	if err := r.db.Create(&a).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear alumno", err)
	}
	r.alumnos[exp] = a.ID
	return a.ID, nil
}

/* ===================== Plan de estudio ===================== */

// ResolverPlan busca por (nombre, version) o crea el plan.
func (r *Resolver) ResolverPlan(nombre, version string, totalCreditos, semestres int) (uint, error) {
	nombre = Colapsar(nombre)
	version = strings.TrimSpace(version)
	if nombre == "" {
		return 0, apperr.NewValidationError("nombre", 0, "plan sin nombre")
	}

	var p models.PlanEstudio
	err := r.db.Where("nombre = ? AND version = ?", nombre, version).First(&p).Error
	if err == nil {
		return p.ID, nil
	}
	if !esNoEncontrado(err) {
		return 0, apperr.NewPersistenceError("buscar plan", err)
	}

	p = models.PlanEstudio{Nombre: nombre, Version: version, TotalCreditos: totalCreditos, SemestresSugeridos: semestres}
	if err := r.db.Create(&p).Error; err != nil {
		return 0, apperr.NewPersistenceError("crear plan", err)
	}
	return p.ID, nil
}
