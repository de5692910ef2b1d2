package worker

import (
	"context"

	"course-service/internal/broker"
	"course-service/internal/models"
	"course-service/internal/service"
	"course-service/internal/store"
	"course-service/internal/util"

	"go.uber.org/zap"
)

// PurchaseWorker consumes payment provider results and drives the purchase
// lifecycle to its terminal status. Redelivered events are dropped through
// the processed-events ledger, so a Kafka retry cannot double-apply.
type PurchaseWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	purchases    *service.PurchaseService
	logger       *zap.Logger
}

// NewPurchaseWorker creates a new purchase worker
func NewPurchaseWorker(consumer *broker.Consumer, store *store.Store, purchases *service.PurchaseService) *PurchaseWorker {
	w := &PurchaseWorker{
		consumer:  consumer,
		store:     store,
		purchases: purchases,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentSucceeded(w.handlePaymentSucceeded)
	eventHandler.OnPaymentFailed(w.handlePaymentFailed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *PurchaseWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting purchase worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PurchaseWorker) Stop() error {
	w.logger.Info("Stopping purchase worker")
	return w.consumer.Close()
}

func (w *PurchaseWorker) handlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Handling payment success",
		zap.String("payment_id", event.PaymentID),
		zap.String("tx_id", event.ProviderTxID))

	if _, err := w.purchases.Confirm(ctx, event.PaymentID); err != nil {
		// Conflict means a manual Fail won the race; the status is terminal
		// either way and retrying the event cannot help.
		if service.KindOf(err) == service.KindInternal {
			return err
		}
		w.logger.Warn("Payment success not applied",
			zap.String("payment_id", event.PaymentID),
			zap.Error(err))
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *PurchaseWorker) handlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Warn("Handling payment failure",
		zap.String("payment_id", event.PaymentID),
		zap.String("reason", event.Reason))

	if _, err := w.purchases.Fail(ctx, event.PaymentID); err != nil {
		if service.KindOf(err) == service.KindInternal {
			return err
		}
		w.logger.Warn("Payment failure not applied",
			zap.String("payment_id", event.PaymentID),
			zap.Error(err))
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// PaymentWorker consumes purchase-created events and runs the simulated
// payment provider for each.
type PaymentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	payments     *service.PaymentService
	logger       *zap.Logger
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(consumer *broker.Consumer, payments *service.PaymentService) *PaymentWorker {
	w := &PaymentWorker{
		consumer: consumer,
		payments: payments,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseCreated(func(ctx context.Context, event *models.PurchaseCreatedEvent) error {
		w.logger.Info("Processing payment for purchase",
			zap.Int64("purchase_id", event.PurchaseID),
			zap.String("payment_id", event.PaymentID))
		return w.payments.ProcessPayment(ctx, event.PaymentID, event.Amount)
	})
	w.eventHandler = eventHandler

	return w
}

// Start starts the payment worker
func (w *PaymentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the payment worker
func (w *PaymentWorker) Stop() error {
	w.logger.Info("Stopping payment worker")
	return w.consumer.Close()
}
