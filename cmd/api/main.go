package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/ports"
	"github.com/jhoicas/bultos-api/internal/application/production"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
	"github.com/jhoicas/bultos-api/internal/infrastructure/memory"
	"github.com/jhoicas/bultos-api/internal/infrastructure/metrics"
	"github.com/jhoicas/bultos-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/bultos-api/internal/interfaces/http"
	"github.com/jhoicas/bultos-api/pkg/config"
	"github.com/jhoicas/bultos-api/pkg/logger"
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
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, catalog, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer closeStore()

	prom := metrics.New("bultos")
	obs := ports.NewObserver(log, prom)

	lotUC := inventory.NewLotUseCase(store, catalog, obs)
	requestUC := dispatch.NewRequestUseCase(store, catalog, lotUC, obs)
	palletUC := dispatch.NewPalletUseCase(store, lotUC, obs)
	pautaUC := production.NewPautaUseCase(store, catalog, lotUC, obs)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.HTTP.SwaggerFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Bultos API",
		}))
	}

	deps := httpRouter.RouterDeps{
		LotUC:     lotUC,
		RequestUC: requestUC,
		PalletUC:  palletUC,
		PautaUC:   pautaUC,
		Logger:    log,
		JWTSecret: cfg.JWT.Secret,
	}
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(prom.Handler()))
		deps.Metrics = prom
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStore elige el almacenamiento según STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.TxRunner, repository.CatalogRepository, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos no persisten entre reinicios")
		return memory.NewStore(), demoCatalog(), func() {}, nil
	}

	if cfg.DB.AutoMigrate {
		mg, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
		if err != nil {
			return nil, nil, nil, err
		}
		err = mg.Up()
		if cerr := mg.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("cerrar migrador")
		}
		if err != nil {
			return nil, nil, nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	return postgres.NewTxRunner(pool), postgres.NewCatalogRepository(pool), pool.Close, nil
}
