package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"course-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events. Purchase lifecycle and
// progress events go to the purchase topic; payment provider results go to
// the payment topic.
type EventPublisher struct {
	purchaseProducer *Producer
	paymentProducer  *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(purchaseProducer, paymentProducer *Producer) *EventPublisher {
	return &EventPublisher{
		purchaseProducer: purchaseProducer,
		paymentProducer:  paymentProducer,
	}
}

// PublishPurchaseCreated publishes PurchaseCreated event
func (ep *EventPublisher) PublishPurchaseCreated(ctx context.Context, event *models.PurchaseCreatedEvent) error {
	return ep.purchaseProducer.PublishEvent(ctx, fmt.Sprintf("payment-%s", event.PaymentID), event)
}

// PublishPurchaseCompleted publishes PurchaseCompleted event
func (ep *EventPublisher) PublishPurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error {
	return ep.purchaseProducer.PublishEvent(ctx, fmt.Sprintf("payment-%s", event.PaymentID), event)
}

// PublishPurchaseFailed publishes PurchaseFailed event
func (ep *EventPublisher) PublishPurchaseFailed(ctx context.Context, event *models.PurchaseFailedEvent) error {
	return ep.purchaseProducer.PublishEvent(ctx, fmt.Sprintf("payment-%s", event.PaymentID), event)
}

// PublishPaymentSucceeded publishes PaymentSucceeded event
func (ep *EventPublisher) PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	return ep.paymentProducer.PublishEvent(ctx, fmt.Sprintf("payment-%s", event.PaymentID), event)
}

// PublishPaymentFailed publishes PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return ep.paymentProducer.PublishEvent(ctx, fmt.Sprintf("payment-%s", event.PaymentID), event)
}

// PublishLectureViewed publishes LectureViewed event
func (ep *EventPublisher) PublishLectureViewed(ctx context.Context, event *models.LectureViewedEvent) error {
	return ep.purchaseProducer.PublishEvent(ctx, fmt.Sprintf("progress-%d-%d", event.UserID, event.CourseID), event)
}

// PublishCourseCompleted publishes CourseCompleted event
func (ep *EventPublisher) PublishCourseCompleted(ctx context.Context, event *models.CourseCompletedEvent) error {
	return ep.purchaseProducer.PublishEvent(ctx, fmt.Sprintf("progress-%d-%d", event.UserID, event.CourseID), event)
}

// EventHandler routes incoming messages to registered handlers
type EventHandler struct {
	onPurchaseCreated  func(context.Context, *models.PurchaseCreatedEvent) error
	onPaymentSucceeded func(context.Context, *models.PaymentSucceededEvent) error
	onPaymentFailed    func(context.Context, *models.PaymentFailedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPurchaseCreated registers a handler for PurchaseCreated events
func (eh *EventHandler) OnPurchaseCreated(handler func(context.Context, *models.PurchaseCreatedEvent) error) {
	eh.onPurchaseCreated = handler
}

// OnPaymentSucceeded registers a handler for PaymentSucceeded events
func (eh *EventHandler) OnPaymentSucceeded(handler func(context.Context, *models.PaymentSucceededEvent) error) {
	eh.onPaymentSucceeded = handler
}

// OnPaymentFailed registers a handler for PaymentFailed events
func (eh *EventHandler) OnPaymentFailed(handler func(context.Context, *models.PaymentFailedEvent) error) {
	eh.onPaymentFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypePurchaseCreated:
		if eh.onPurchaseCreated != nil {
			var event models.PurchaseCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseCreated event: %w", err)
			}
			return eh.onPurchaseCreated(ctx, &event)
		}

	case models.EventTypePaymentSucceeded:
		if eh.onPaymentSucceeded != nil {
			var event models.PaymentSucceededEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentSucceeded event: %w", err)
			}
			return eh.onPaymentSucceeded(ctx, &event)
		}

	case models.EventTypePaymentFailed:
		if eh.onPaymentFailed != nil {
			var event models.PaymentFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentFailed event: %w", err)
			}
			return eh.onPaymentFailed(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
