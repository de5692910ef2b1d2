package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"course-service/internal/broker"
	"course-service/internal/models"
	"course-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService simulates the payment provider: it takes a created purchase
// and publishes a success or failure result keyed by the payment id. Real
// provider callbacks land on the same events, so the rest of the pipeline
// does not care which produced them.
type PaymentService struct {
	events      *broker.EventPublisher
	logger      *zap.Logger
	successRate float64
}

// NewPaymentService creates a new payment service
func NewPaymentService(events *broker.EventPublisher, successRate float64) *PaymentService {
	return &PaymentService{
		events:      events,
		logger:      util.GetLogger(),
		successRate: successRate,
	}
}

// ProcessPayment simulates charging for a purchase and publishes the result
func (ps *PaymentService) ProcessPayment(ctx context.Context, paymentID string, amount int64) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()

	ps.logger.Info("Processing payment",
		zap.String("payment_id", paymentID),
		zap.Int64("amount", amount))

	// Simulated provider latency.
	time.Sleep(time.Duration(100+rand.Intn(400)) * time.Millisecond)

	if rand.Float64() < ps.successRate {
		providerTxID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
		ps.logger.Info("Payment succeeded",
			zap.String("payment_id", paymentID),
			zap.String("tx_id", providerTxID))

		util.PaymentSuccessTotal.Inc()

		event := &models.PaymentSucceededEvent{
			BaseEvent:    newBaseEvent(models.EventTypePaymentSucceeded),
			PaymentID:    paymentID,
			ProviderTxID: providerTxID,
			Amount:       amount,
		}
		if err := ps.events.PublishPaymentSucceeded(ctx, event); err != nil {
			return fmt.Errorf("failed to publish PaymentSucceeded event: %w", err)
		}
		return nil
	}

	ps.logger.Warn("Payment declined", zap.String("payment_id", paymentID))
	util.PaymentFailedTotal.Inc()

	event := &models.PaymentFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentFailed),
		PaymentID: paymentID,
		Reason:    "payment_declined",
	}
	if err := ps.events.PublishPaymentFailed(ctx, event); err != nil {
		return fmt.Errorf("failed to publish PaymentFailed event: %w", err)
	}
	return nil
}
