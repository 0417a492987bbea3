package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppEnv  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Directorio donde se guardan los archivos subidos.
	UploadDir string

	// Comandos de los extractores externos (hoja de cálculo y PDF).
	SheetExtractorCmd string
	PDFExtractorCmd   string

	JWTSecret string

	LogLevel  string
	LogFormat string
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	// .env es opcional; en contenedores las variables llegan del entorno
	_ = godotenv.Load()

	return &Config{
		AppPort: get("APP_PORT", "8080"),
		AppEnv:  get("APP_ENV", "dev"),

		DBHost:     get("DB_HOST", "localhost"),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: get("DB_PASSWORD", "postgres"),
		DBName:     get("DB_NAME", "sistema_pds"),
		DBSSLMode:  get("DB_SSLMODE", "disable"),

		UploadDir: get("UPLOAD_DIR", "./uploads"),

		SheetExtractorCmd: get("SHEET_EXTRACTOR_CMD", "extractor-hojas"),
		PDFExtractorCmd:   get("PDF_EXTRACTOR_CMD", "extractor-pdf"),

		JWTSecret: get("JWT_SECRET", "dev-secret"),

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "console"),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
