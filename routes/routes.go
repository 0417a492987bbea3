package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/saulfer1109/sistema-PDS2-sub000/config"
	"github.com/saulfer1109/sistema-PDS2-sub000/handlers"
	"github.com/saulfer1109/sistema-PDS2-sub000/middlewares"
)

// Register arma todas las rutas HTTP.
func Register(e *echo.Echo, cfg *config.Config) {
	auth := handlers.NewAuthHandler(cfg.JWTSecret)
	arch := handlers.NewArchivoHandler(cfg)

	// ===== Público =====
	e.POST("/auth/login", auth.Login)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{"ok": true})
	})

	// ===== Ingesta (solo personal autorizado) =====
	g := e.Group("/archivos",
		middlewares.RequireAuth(cfg.JWTSecret),
		middlewares.RequireRole("ADMIN", "COORDINADOR"),
	)
	g.POST("/horarios", arch.SubirHorarios)
	g.POST("/:tipo", arch.Subir)
	g.GET("", arch.Listar)
	g.GET("/:id/auditoria", arch.Auditoria)
}
