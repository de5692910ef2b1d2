package models

import "time"

// User represents a minimal learner/instructor profile
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	PhotoURL  string    `db:"photo_url" json:"photo_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Course represents a course in the catalog. Price is in minor currency
// units and nullable: an unpriced course cannot be purchased.
type Course struct {
	ID           int64     `db:"id" json:"id"`
	CreatorID    int64     `db:"creator_id" json:"creator_id"`
	Title        string    `db:"title" json:"title"`
	Subtitle     string    `db:"subtitle" json:"subtitle,omitempty"`
	Description  string    `db:"description" json:"description,omitempty"`
	Category     string    `db:"category" json:"category"`
	Level        string    `db:"level" json:"level,omitempty"`
	Price        *int64    `db:"price" json:"price,omitempty"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	IsPublished  bool      `db:"is_published" json:"is_published"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Lecture belongs to exactly one course; the course owns the ordering
// through Position.
type Lecture struct {
	ID            int64     `db:"id" json:"id"`
	CourseID      int64     `db:"course_id" json:"course_id"`
	Title         string    `db:"title" json:"title"`
	VideoURL      string    `db:"video_url" json:"video_url,omitempty"`
	MediaID       string    `db:"media_id" json:"media_id,omitempty"`
	IsPreviewFree bool      `db:"is_preview_free" json:"is_preview_free"`
	Position      int       `db:"position" json:"position"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CoursePurchase tracks one buy attempt's lifecycle. PaymentID is the
// opaque external handle used by confirm/fail instead of the row's ID.
type CoursePurchase struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Amount    int64     `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	PaymentID string    `db:"payment_id" json:"payment_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Enrollment is one element of the enrolled-students set for a course
type Enrollment struct {
	CourseID  int64     `db:"course_id" json:"course_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseProgress aggregates per-lecture viewed state for one (user, course)
// pair. The row is created lazily on the first lecture-view event.
type CourseProgress struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Completed bool      `db:"completed" json:"completed"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LectureProgress is one viewed-state entry; the (progress_id, lecture_id)
// primary key makes duplicate entries impossible.
type LectureProgress struct {
	ProgressID int64     `db:"progress_id" json:"-"`
	LectureID  int64     `db:"lecture_id" json:"lecture_id"`
	Viewed     bool      `db:"viewed" json:"viewed"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`
}

// Purchase statuses. COMPLETED and FAILED are terminal.
const (
	PurchaseStatusPending   = "PENDING"
	PurchaseStatusCompleted = "COMPLETED"
	PurchaseStatusFailed    = "FAILED"
)

var validNext = map[string]map[string]bool{
	PurchaseStatusPending: {
		PurchaseStatusCompleted: true,
		PurchaseStatusFailed:    true,
	},
	PurchaseStatusCompleted: {},
	PurchaseStatusFailed:    {},
}

// CanTransition reports whether a purchase may move from one status to
// another. Only PENDING has outgoing edges.
func CanTransition(from, to string) bool {
	return validNext[from][to]
}

// IsTerminalStatus reports whether a status has no outgoing transitions
func IsTerminalStatus(status string) bool {
	next, ok := validNext[status]
	return ok && len(next) == 0
}

// ProcessedEvent for consumer-side idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
