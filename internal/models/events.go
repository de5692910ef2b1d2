package models

import "time"

// Event types
const (
	EventTypePurchaseCreated   = "PURCHASE_CREATED"
	EventTypePurchaseCompleted = "PURCHASE_COMPLETED"
	EventTypePurchaseFailed    = "PURCHASE_FAILED"
	EventTypePaymentSucceeded  = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed     = "PAYMENT_FAILED"
	EventTypeLectureViewed     = "LECTURE_VIEWED"
	EventTypeCourseCompleted   = "COURSE_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseCreatedEvent published when a purchase record enters PENDING
type PurchaseCreatedEvent struct {
	BaseEvent
	PurchaseID int64  `json:"purchase_id"`
	PaymentID  string `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	CourseID   int64  `json:"course_id"`
	Amount     int64  `json:"amount"`
}

// PurchaseCompletedEvent published when a purchase transitions to COMPLETED
type PurchaseCompletedEvent struct {
	BaseEvent
	PurchaseID int64  `json:"purchase_id"`
	PaymentID  string `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	CourseID   int64  `json:"course_id"`
	Amount     int64  `json:"amount"`
}

// PurchaseFailedEvent published when a purchase transitions to FAILED
type PurchaseFailedEvent struct {
	BaseEvent
	PurchaseID int64  `json:"purchase_id"`
	PaymentID  string `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	CourseID   int64  `json:"course_id"`
	Reason     string `json:"reason,omitempty"`
}

// PaymentSucceededEvent published by the payment provider side
type PaymentSucceededEvent struct {
	BaseEvent
	PaymentID    string `json:"payment_id"`
	ProviderTxID string `json:"provider_tx_id"`
	Amount       int64  `json:"amount"`
}

// PaymentFailedEvent published by the payment provider side
type PaymentFailedEvent struct {
	BaseEvent
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

// LectureViewedEvent published when a lecture is marked viewed
type LectureViewedEvent struct {
	BaseEvent
	UserID    int64 `json:"user_id"`
	CourseID  int64 `json:"course_id"`
	LectureID int64 `json:"lecture_id"`
}

// CourseCompletedEvent published on the false-to-true completion edge
type CourseCompletedEvent struct {
	BaseEvent
	UserID   int64 `json:"user_id"`
	CourseID int64 `json:"course_id"`
}
