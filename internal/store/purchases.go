package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course-service/internal/models"
)

// ErrTerminalStatus is returned when a status transition is attempted on a
// purchase that has already reached COMPLETED or FAILED.
var ErrTerminalStatus = errors.New("purchase already in terminal status")

// CreatePurchase inserts a new PENDING purchase row. The UNIQUE(user_id,
// course_id) constraint rejects a second attempt for the same pair.
func (s *Store) CreatePurchase(ctx context.Context, purchase *models.CoursePurchase) error {
	query := `
		INSERT INTO course_purchases (user_id, course_id, amount, status, payment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, purchase, query,
		purchase.UserID, purchase.CourseID, purchase.Amount, purchase.Status, purchase.PaymentID)
}

// GetPurchaseByPaymentID retrieves a purchase by its payment identifier
func (s *Store) GetPurchaseByPaymentID(ctx context.Context, paymentID string) (*models.CoursePurchase, error) {
	var purchase models.CoursePurchase
	err := s.db.GetContext(ctx, &purchase,
		"SELECT * FROM course_purchases WHERE payment_id = $1", paymentID)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// GetPurchaseByUserAndCourse retrieves the purchase row for a (user, course)
// pair; returns (nil, nil) when none exists.
func (s *Store) GetPurchaseByUserAndCourse(ctx context.Context, userID, courseID int64) (*models.CoursePurchase, error) {
	var purchase models.CoursePurchase
	err := s.db.GetContext(ctx, &purchase,
		"SELECT * FROM course_purchases WHERE user_id = $1 AND course_id = $2", userID, courseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// HasPendingPurchase reports whether a PENDING row exists for the pair
func (s *Store) HasPendingPurchase(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM course_purchases WHERE user_id = $1 AND course_id = $2 AND status = $3)",
		userID, courseID, models.PurchaseStatusPending)
	return exists, err
}

// HasCompletedPurchase reports whether a COMPLETED row exists for the pair
func (s *Store) HasCompletedPurchase(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM course_purchases WHERE user_id = $1 AND course_id = $2 AND status = $3)",
		userID, courseID, models.PurchaseStatusCompleted)
	return exists, err
}

// TransitionPurchaseStatus performs a guarded compare-and-swap from PENDING
// to the given terminal status, keyed by payment id. Returns the updated row,
// ErrTerminalStatus when the row exists but has already left PENDING, and
// sql.ErrNoRows when no row matches the payment id at all.
func (s *Store) TransitionPurchaseStatus(ctx context.Context, paymentID, to string) (*models.CoursePurchase, error) {
	if !models.CanTransition(models.PurchaseStatusPending, to) {
		return nil, fmt.Errorf("illegal purchase transition %s -> %s", models.PurchaseStatusPending, to)
	}

	var purchase models.CoursePurchase
	err := s.db.GetContext(ctx, &purchase,
		`UPDATE course_purchases
		 SET status = $1, updated_at = NOW()
		 WHERE payment_id = $2 AND status = $3
		 RETURNING *`,
		to, paymentID, models.PurchaseStatusPending)
	if err == nil {
		return &purchase, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// No PENDING row to swap; distinguish missing from terminal.
	existing, err := s.GetPurchaseByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return existing, ErrTerminalStatus
}

// ApplyPurchaseCompletion records enrollment for a completed purchase. The
// insert is ON CONFLICT DO NOTHING, so retrying after a crash between the
// status swap and this write converges without duplicating set membership.
// The enrollments table carries both directions of the relation: the course's
// enrolled-students set and the user's enrolled-courses set.
func (s *Store) ApplyPurchaseCompletion(ctx context.Context, userID, courseID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO enrollments (course_id, user_id) VALUES ($1, $2) ON CONFLICT (course_id, user_id) DO NOTHING",
		courseID, userID)
	return err
}

// GetEnrolledUserIDs retrieves the enrolled-students set for a course
func (s *Store) GetEnrolledUserIDs(ctx context.Context, courseID int64) ([]int64, error) {
	var userIDs []int64
	err := s.db.SelectContext(ctx, &userIDs,
		"SELECT user_id FROM enrollments WHERE course_id = $1 ORDER BY user_id", courseID)
	return userIDs, err
}

// GetEnrolledCourseIDs retrieves the enrolled-courses set for a user
func (s *Store) GetEnrolledCourseIDs(ctx context.Context, userID int64) ([]int64, error) {
	var courseIDs []int64
	err := s.db.SelectContext(ctx, &courseIDs,
		"SELECT course_id FROM enrollments WHERE user_id = $1 ORDER BY course_id", userID)
	return courseIDs, err
}

// PurchaseWithCourse is a completed purchase joined with its course
type PurchaseWithCourse struct {
	models.CoursePurchase
	Course models.Course `db:"course" json:"course"`
}

// GetCompletedPurchases retrieves every COMPLETED purchase with its course,
// used by reporting (revenue, top course).
func (s *Store) GetCompletedPurchases(ctx context.Context) ([]PurchaseWithCourse, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT
			p.id, p.user_id, p.course_id, p.amount, p.status, p.payment_id, p.created_at, p.updated_at,
			c.id AS "course.id", c.creator_id AS "course.creator_id", c.title AS "course.title",
			c.subtitle AS "course.subtitle", c.description AS "course.description",
			c.category AS "course.category", c.level AS "course.level", c.price AS "course.price",
			c.thumbnail_url AS "course.thumbnail_url", c.is_published AS "course.is_published",
			c.created_at AS "course.created_at", c.updated_at AS "course.updated_at"
		FROM course_purchases p
		JOIN courses c ON c.id = p.course_id
		WHERE p.status = $1
		ORDER BY p.created_at DESC`,
		models.PurchaseStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PurchaseWithCourse
	for rows.Next() {
		var pwc PurchaseWithCourse
		if err := rows.StructScan(&pwc); err != nil {
			return nil, err
		}
		result = append(result, pwc)
	}
	return result, rows.Err()
}
