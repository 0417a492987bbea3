package main

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/saulfer1109/sistema-PDS2-sub000/config"
	"github.com/saulfer1109/sistema-PDS2-sub000/database"
	"github.com/saulfer1109/sistema-PDS2-sub000/logging"
	"github.com/saulfer1109/sistema-PDS2-sub000/routes"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// si la base no está arriba el proceso truena de inmediato
	database.Connect(cfg)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	routes.Register(e, cfg)

	logger.Info().Str("puerto", cfg.AppPort).Msg("servidor de ingesta listo")
	if err := e.Start(":" + cfg.AppPort); err != nil {
		logger.Fatal().Err(err).Msg("el servidor terminó")
	}
}
