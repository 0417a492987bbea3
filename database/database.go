package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/saulfer1109/sistema-PDS2-sub000/config"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		// Traducir violaciones de unicidad a gorm.ErrDuplicatedKey;
		// el registro de archivos depende de ello para la deduplicación.
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = db

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
}

// Migrate crea/actualiza el esquema. El orden respeta las dependencias
// de llaves foráneas.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Usuario{},
		&models.ArchivoCargado{},
		&models.AuditoriaCarga{},
		&models.Periodo{},
		&models.PlanEstudio{},
		&models.Materia{},
		&models.Alumno{},
		&models.Grupo{},
		&models.Profesor{},
		&models.AsignacionProfesor{},
		&models.Horario{},
		&models.Inscripcion{},
		&models.AlumnoGrupo{},
		&models.Kardex{},
	)
}
