// Package logging configura el logger estructurado del sistema (zerolog).
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup construye el logger raíz a partir de nivel y formato ("json" o
// "console") y lo instala como logger por defecto del proceso.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(format, "console") {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		logger = zerolog.New(out)
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.Level(lvl).With().Timestamp().Logger()

	// log.Logger es el logger que consumen los componentes del
	// pipeline; sin esta asignación la configuración de nivel y
	// formato solo aplicaría a los logs del arranque.
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}

// Nop devuelve un logger que descarta todo; útil en pruebas.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
