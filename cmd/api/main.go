package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/oraculo-icms/internal/application/auth"
	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
	"github.com/jhoicas/oraculo-icms/internal/infrastructure/csvrules"
	infranfe "github.com/jhoicas/oraculo-icms/internal/infrastructure/nfe"
	infrapdf "github.com/jhoicas/oraculo-icms/internal/infrastructure/pdf"
	"github.com/jhoicas/oraculo-icms/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/oraculo-icms/internal/interfaces/http"
	"github.com/jhoicas/oraculo-icms/pkg/config"
	"github.com/jhoicas/oraculo-icms/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("rules_source", cfg.ICMS.RulesSource).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// PostgreSQL solo cuando las matrices o las corridas viven en la base.
	var (
		runs   repository.CalculationRunRepository
		source calculation.RuleSource
		store  calculation.RuleTableStore
		authUC *auth.AuthUseCase
	)
	if cfg.ICMS.RulesSource == "postgres" || cfg.ICMS.PersistRuns {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		if cfg.ICMS.PersistRuns {
			runs = postgres.NewCalculationRepository(pool)
		}

		authUC = auth.NewAuthUseCase(postgres.NewUserRepository(pool), auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		})
		if cfg.Auth.AdminEmail != "" {
			created, err := authUC.EnsureAdmin(ctx, cfg.Auth.AdminCompanyID, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
			if err != nil {
				log.Fatal().Err(err).Msg("crear admin inicial")
			}
			if created {
				log.Info().Str("email", cfg.Auth.AdminEmail).Msg("admin inicial creado")
			}
		}
		if cfg.ICMS.RulesSource == "postgres" {
			ruleRepo := postgres.NewRuleMatrixRepository(postgres.NewTxRunner(pool))
			source, store = ruleRepo, ruleRepo
		}
	}
	if cfg.ICMS.RulesSource == "csv" {
		source = csvrules.NewSource(cfg.ICMS.RulesDir)
	}

	defaults := calculation.LegacyDefaults(cfg.ICMS.OriginRate, cfg.ICMS.MVA, cfg.ICMS.InternalRate, cfg.ICMS.Multiplier)
	engines := calculation.NewEngineProvider(source, cfg.ICMS.RulesSource, defaults, log)
	if _, err := engines.Reload(ctx); err != nil {
		// Se arranca con matrices vacías; /api/admin/matrices/reload permite reintentar.
		log.Warn().Err(err).Msg("carga inicial de matrices")
	}
	if cfg.ICMS.ReloadMinutes > 0 {
		go engines.Watch(ctx, time.Duration(cfg.ICMS.ReloadMinutes)*time.Minute)
	}

	calcSvc := calculation.NewService(
		engines, infranfe.NewParser(), runs, infrapdf.NewMarotoMemoriaGenerator(),
		calculation.Config{UseMultiplier: cfg.ICMS.UseMultiplier, PersistRuns: cfg.ICMS.PersistRuns},
		log,
	)
	matricesUC := calculation.NewMatricesUseCase(engines, csvrules.NewParser(), store, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Oráculo ICMS-ST API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Calculation: calcSvc,
		Matrices:    matricesUC,
		AuthUC:      authUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
