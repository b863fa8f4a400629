package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bultos-api/internal/application/dispatch"
	"github.com/jhoicas/bultos-api/internal/application/inventory"
	"github.com/jhoicas/bultos-api/internal/application/production"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// Roles del operador.
const (
	RoleBodeguero  = "bodeguero"
	RoleSupervisor = "supervisor"
	RoleProduccion = "produccion"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	LotUC     *inventory.LotUseCase
	RequestUC *dispatch.RequestUseCase
	PalletUC  *dispatch.PalletUseCase
	PautaUC   *production.PautaUseCase
	Metrics   HTTPMetrics // opcional
	Logger    *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	supervisor := RequireRole(RoleSupervisor)
	producers := RequireRole(RoleProduccion, RoleSupervisor)

	// Bultos y reservas
	lotHandler := NewLotHandler(deps.LotUC, log)
	pautaHandler := NewPautaHandler(deps.PautaUC, log)
	lots := api.Group("/lots")
	lots.Post("/", lotHandler.Create)
	lots.Get("/", lotHandler.ListAvailable)
	lots.Get("/:id", lotHandler.GetByID)
	lots.Get("/:id/children", lotHandler.Children)
	lots.Get("/:id/movements", lotHandler.Movements)
	lots.Get("/:id/pautas", pautaHandler.ListByLot)
	lots.Post("/:id/split", lotHandler.Split)
	lots.Post("/:id/reservations", lotHandler.Reserve)
	api.Post("/reservations/:id/release", lotHandler.Release)

	// Solicitudes de mercadería
	requestHandler := NewRequestHandler(deps.RequestUC, deps.PalletUC, log)
	requests := api.Group("/requests")
	requests.Post("/", requestHandler.Create)
	requests.Get("/", requestHandler.List)
	requests.Get("/:id", requestHandler.GetByID)
	requests.Post("/:id/validate", requestHandler.Validate)
	requests.Post("/:id/begin-preparation", requestHandler.BeginPreparation)
	requests.Post("/:id/mark-ready", requestHandler.MarkReady)
	requests.Post("/:id/dispatch", requestHandler.Dispatch)
	requests.Post("/:id/receive", requestHandler.Receive)
	requests.Post("/:id/cancel", requestHandler.Cancel)
	requests.Post("/:id/pallets", requestHandler.CreatePallet)
	requests.Get("/:id/pallets", requestHandler.ListPallets)

	// Pallets
	palletHandler := NewPalletHandler(deps.PalletUC, log)
	pallets := api.Group("/pallets")
	pallets.Get("/:id", palletHandler.GetByID)
	pallets.Post("/:id/lots", palletHandler.AssignLot)
	pallets.Delete("/:id/lots/:lotId", palletHandler.RemoveLot)
	pallets.Post("/:id/close", palletHandler.Close)
	pallets.Post("/:id/reopen", supervisor, palletHandler.Reopen)

	// Pautas de producción
	pautas := api.Group("/pautas", producers)
	pautas.Post("/", pautaHandler.Create)
	pautas.Get("/:id", pautaHandler.GetByID)
	pautas.Post("/:id/begin", pautaHandler.Begin)
	pautas.Post("/:id/complete", pautaHandler.Complete)
	steps := api.Group("/steps", producers)
	steps.Post("/:id/start", pautaHandler.StartStep)
	steps.Post("/:id/complete", pautaHandler.CompleteStep)
}
