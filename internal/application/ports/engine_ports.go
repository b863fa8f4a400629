package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bultos-api/internal/domain"
	"github.com/jhoicas/bultos-api/internal/domain/repository"
	"github.com/jhoicas/bultos-api/pkg/logger"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda ningún efecto persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// Metrics puerto de salida para contadores de operaciones del motor.
type Metrics interface {
	ObserveOperation(operation string, err error)
}

// NopMetrics descarta las observaciones.
type NopMetrics struct{}

// ObserveOperation no hace nada.
func (NopMetrics) ObserveOperation(string, error) {}

// Op identifica una unidad de trabajo: quién la pide, qué transacción la agrupa y cuándo.
// Todos los movimientos de una misma Op comparten TxID.
type Op struct {
	Actor string
	TxID  string
	Now   time.Time
}

// NewOp crea una Op para el actor con un TxID nuevo.
func NewOp(actor string) Op {
	return Op{Actor: actor, TxID: uuid.New().String(), Now: time.Now().UTC()}
}

// Observer registra cada operación mutante en el log de auditoría y en métricas.
type Observer struct {
	log     *logger.Logger
	metrics Metrics
}

// NewObserver construye el observador. metrics nil equivale a NopMetrics.
func NewObserver(log *logger.Logger, metrics Metrics) *Observer {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Observer{log: log, metrics: metrics}
}

// Done cuenta la operación y abre el evento de auditoría; el llamador agrega campos y llama Msg.
// Éxito se audita en info, reglas de negocio rechazadas en warn, el resto en error.
func (o *Observer) Done(op Op, operation string, err error) *zerolog.Event {
	o.metrics.ObserveOperation(operation, err)

	level := zerolog.InfoLevel
	switch {
	case err == nil:
	case domain.IsBusiness(err):
		level = zerolog.WarnLevel
	default:
		level = zerolog.ErrorLevel
	}
	ev := o.log.Event(level).
		Str("operation", operation).
		Str("actor", op.Actor).
		Str("tx_id", op.TxID)
	if err != nil {
		ev = ev.Err(err)
	}
	return ev
}

// Logger devuelve el logger subyacente.
func (o *Observer) Logger() *logger.Logger {
	return o.log
}
