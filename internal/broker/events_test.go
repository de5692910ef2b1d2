package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-service/internal/models"
)

func messageFor(t *testing.T, event interface{}) kafka.Message {
	t.Helper()

	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesPaymentSucceeded(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PaymentSucceededEvent
	handler.OnPaymentSucceeded(func(ctx context.Context, event *models.PaymentSucceededEvent) error {
		got = event
		return nil
	})

	msg := messageFor(t, &models.PaymentSucceededEvent{
		BaseEvent:    models.BaseEvent{EventID: "evt-1", EventType: models.EventTypePaymentSucceeded},
		PaymentID:    "pay-1",
		ProviderTxID: "TXN-abc",
		Amount:       4999,
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, "pay-1", got.PaymentID)
	assert.Equal(t, int64(4999), got.Amount)
}

func TestHandleMessageRoutesPaymentFailed(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PaymentFailedEvent
	handler.OnPaymentFailed(func(ctx context.Context, event *models.PaymentFailedEvent) error {
		got = event
		return nil
	})

	msg := messageFor(t, &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypePaymentFailed},
		PaymentID: "pay-1",
		Reason:    "payment_declined",
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, "payment_declined", got.Reason)
}

func TestHandleMessageRoutesPurchaseCreated(t *testing.T) {
	handler := NewEventHandler()

	var got *models.PurchaseCreatedEvent
	handler.OnPurchaseCreated(func(ctx context.Context, event *models.PurchaseCreatedEvent) error {
		got = event
		return nil
	})

	msg := messageFor(t, &models.PurchaseCreatedEvent{
		BaseEvent:  models.BaseEvent{EventID: "evt-3", EventType: models.EventTypePurchaseCreated},
		PurchaseID: 10,
		PaymentID:  "pay-1",
		UserID:     1,
		CourseID:   2,
		Amount:     4999,
	})

	require.NoError(t, handler.HandleMessage(context.Background(), msg))
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.PurchaseID)
}

func TestHandleMessageUnknownType(t *testing.T) {
	handler := NewEventHandler()
	handler.OnPaymentSucceeded(func(ctx context.Context, event *models.PaymentSucceededEvent) error {
		t.Fatal("handler should not fire for unknown event types")
		return nil
	})

	msg := messageFor(t, &models.BaseEvent{EventID: "evt-4", EventType: "SOMETHING_ELSE"})
	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}

func TestHandleMessageBadPayload(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
