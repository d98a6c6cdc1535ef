package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartMirror writes one cart addition to the upstream mirror.
type CartMirror interface {
	AddToCart(ctx context.Context, productID string, quantity int) error
}

// MirrorWorker consumes cart activity events and replays additions against
// the upstream cart mirror. The mirror is best-effort: failures are logged
// and counted, never surfaced to the user path.
type MirrorWorker struct {
	consumer *broker.Consumer
	handler  *broker.EventHandler
	logger   *zap.Logger
}

// NewMirrorWorker wires the consumer to the mirror client.
func NewMirrorWorker(consumer *broker.Consumer, mirror CartMirror) *MirrorWorker {
	logger := util.GetLogger()

	handler := broker.NewEventHandler()
	handler.OnItemAdded(func(ctx context.Context, event *models.CartItemAddedEvent) error {
		if err := mirror.AddToCart(ctx, event.ProductID, event.Quantity); err != nil {
			util.MirrorWritesTotal.WithLabelValues("error").Inc()
			logger.Warn("Upstream cart mirror write failed",
				zap.String("session_id", event.SessionID),
				zap.String("product_id", event.ProductID),
				zap.Error(err))
			// Swallow the error: the mirror is advisory, redelivery would
			// only repeat a write the upstream already refused.
			return nil
		}
		util.MirrorWritesTotal.WithLabelValues("ok").Inc()
		return nil
	})

	return &MirrorWorker{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start consumes events until the context is cancelled.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cart mirror worker")
	return w.consumer.Run(ctx, w.handler.HandleMessage)
}

// Stop closes the underlying consumer.
func (w *MirrorWorker) Stop() error {
	w.logger.Info("Stopping cart mirror worker")
	return w.consumer.Close()
}
