package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/oraculo-icms/internal/application/auth"
	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Calculation *calculation.Service
	Matrices    *calculation.MatricesUseCase
	AuthUC      *auth.AuthUseCase // nil cuando no hay base de datos: los tokens se emiten afuera
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := deps.Matrices.Status()
		return c.JSON(fiber.Map{
			"status":        "ok",
			"rules_version": status.Version,
			"rules":         status.Usable,
			"time":          time.Now().UTC(),
		})
	})

	api := app.Group("/api")

	var authHandler *AuthHandler
	if deps.AuthUC != nil {
		authHandler = NewAuthHandler(deps.AuthUC)
		api.Post("/auth/login", authHandler.Login)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleAnalyst, jwt.RoleReadOnly)
	calculators := RequireRole(jwt.RoleAdmin, jwt.RoleAnalyst)

	// ICMS-ST
	st := protected.Group("/icms-st")
	stHandler := NewICMSSTHandler(deps.Calculation)
	st.Post("/calculate", calculators, stHandler.Calculate)
	st.Post("/nfe", calculators, stHandler.CalculateNFe)
	st.Get("/runs", anyRole, stHandler.ListRuns)
	st.Get("/runs/:id", anyRole, stHandler.GetRun)
	st.Get("/runs/:id/pdf", anyRole, stHandler.DownloadPDF)
	st.Get("/rules/resolve", anyRole, stHandler.ResolveRule)

	// Matrices (solo admin)
	admin := protected.Group("/admin/matrices", RequireRole(jwt.RoleAdmin))
	adminHandler := NewAdminHandler(deps.Matrices)
	admin.Get("/", adminHandler.Status)
	admin.Post("/reload", adminHandler.Reload)
	admin.Post("/import/:name", adminHandler.Import)

	// Usuarios (solo admin, siempre en su propia empresa)
	if authHandler != nil {
		users := protected.Group("/auth/users", RequireRole(jwt.RoleAdmin))
		users.Get("/", authHandler.ListUsers)
		users.Post("/", authHandler.Register)
	}
}
