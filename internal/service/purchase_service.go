package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"course-service/internal/broker"
	"course-service/internal/models"
	"course-service/internal/redisclient"
	"course-service/internal/store"
	"course-service/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pendingMarkerTTL = 30 * time.Minute

// PurchaseService drives the purchase lifecycle: PENDING at creation, then a
// single guarded transition to COMPLETED or FAILED. Redis and the event
// publisher are best-effort collaborators; the store is authoritative.
type PurchaseService struct {
	store  *store.Store
	redis  *redisclient.Client
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(store *store.Store, redis *redisclient.Client, events *broker.EventPublisher) *PurchaseService {
	return &PurchaseService{
		store:  store,
		redis:  redis,
		events: events,
		logger: util.GetLogger(),
	}
}

// Create opens a purchase for (user, course). The course must exist and
// carry a price; any prior purchase row for the pair blocks a new attempt,
// regardless of its status. The price is copied at creation time and kept
// even if the course is repriced later.
func (s *PurchaseService) Create(ctx context.Context, userID, courseID int64) (*models.CoursePurchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Create")
	defer span.End()

	course, err := s.store.GetCourseByID(ctx, courseID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("course %d not found", courseID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load course")
	}

	if course.Price == nil {
		util.PurchasesFailedTotal.WithLabelValues("missing_price").Inc()
		return nil, InvalidInputf("course %d has no price", courseID)
	}

	existing, err := s.store.GetPurchaseByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, Internalf(err, "failed to check existing purchase")
	}
	if existing != nil {
		util.PurchasesFailedTotal.WithLabelValues("duplicate").Inc()
		return nil, Conflictf("course %d already purchased", courseID)
	}

	purchase := &models.CoursePurchase{
		UserID:    userID,
		CourseID:  courseID,
		Amount:    *course.Price,
		Status:    models.PurchaseStatusPending,
		PaymentID: uuid.New().String(),
	}

	if err := s.store.CreatePurchase(ctx, purchase); err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent Create for the same pair.
			util.PurchasesFailedTotal.WithLabelValues("duplicate").Inc()
			return nil, Conflictf("course %d already purchased", courseID)
		}
		util.PurchasesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, Internalf(err, "failed to create purchase")
	}

	util.PurchasesCreatedTotal.Inc()
	s.logger.Info("Purchase created",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID),
		zap.String("payment_id", purchase.PaymentID))

	if s.redis != nil {
		if err := s.redis.SetPendingPurchase(ctx, userID, courseID, purchase.PaymentID, pendingMarkerTTL); err != nil {
			s.logger.Warn("Failed to cache pending purchase marker", zap.Error(err))
		}
	}

	s.publishPurchaseCreated(ctx, purchase)
	return purchase, nil
}

// Confirm moves a purchase PENDING to COMPLETED by payment id and applies
// enrollment. Confirming an already completed purchase re-applies the
// idempotent enrollment and returns the record unchanged; confirming a
// failed purchase is a conflict.
func (s *PurchaseService) Confirm(ctx context.Context, paymentID string) (*models.CoursePurchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Confirm")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PurchaseConfirmLatency.Observe(time.Since(start).Seconds())
	}()

	unlock := s.lockPayment(ctx, paymentID)
	defer unlock()

	purchase, err := s.store.TransitionPurchaseStatus(ctx, paymentID, models.PurchaseStatusCompleted)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("purchase not found for payment %s", paymentID)
	}
	if errors.Is(err, store.ErrTerminalStatus) {
		if purchase.Status == models.PurchaseStatusCompleted {
			// A retry after a crash between the swap and the enrollment
			// write; converge and answer as the first call did.
			if err := s.applyCompletion(ctx, purchase); err != nil {
				return nil, err
			}
			return purchase, nil
		}
		return nil, Conflictf("purchase for payment %s already %s", paymentID, purchase.Status)
	}
	if err != nil {
		return nil, Internalf(err, "failed to complete purchase")
	}

	if err := s.applyCompletion(ctx, purchase); err != nil {
		return nil, err
	}

	util.PurchasesCompletedTotal.Inc()
	s.logger.Info("Purchase confirmed",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("payment_id", paymentID))

	if s.redis != nil {
		if err := s.redis.ClearPendingPurchase(ctx, purchase.UserID, purchase.CourseID); err != nil {
			s.logger.Warn("Failed to clear pending purchase marker", zap.Error(err))
		}
	}

	s.publishPurchaseCompleted(ctx, purchase)
	return purchase, nil
}

// Fail moves a purchase PENDING to FAILED by payment id. Failing an already
// failed purchase returns the record unchanged; failing a completed purchase
// is a conflict.
func (s *PurchaseService) Fail(ctx context.Context, paymentID string) (*models.CoursePurchase, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Fail")
	defer span.End()

	unlock := s.lockPayment(ctx, paymentID)
	defer unlock()

	purchase, err := s.store.TransitionPurchaseStatus(ctx, paymentID, models.PurchaseStatusFailed)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("purchase not found for payment %s", paymentID)
	}
	if errors.Is(err, store.ErrTerminalStatus) {
		if purchase.Status == models.PurchaseStatusFailed {
			return purchase, nil
		}
		return nil, Conflictf("purchase for payment %s already %s", paymentID, purchase.Status)
	}
	if err != nil {
		return nil, Internalf(err, "failed to fail purchase")
	}

	util.PurchasesFailedTotal.WithLabelValues("payment_failed").Inc()
	s.logger.Info("Purchase failed",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("payment_id", paymentID))

	if s.redis != nil {
		if err := s.redis.ClearPendingPurchase(ctx, purchase.UserID, purchase.CourseID); err != nil {
			s.logger.Warn("Failed to clear pending purchase marker", zap.Error(err))
		}
	}

	s.publishPurchaseFailed(ctx, purchase)
	return purchase, nil
}

// CourseStatus is a course with creator and lectures expanded plus the
// purchased flag for the requesting user.
type CourseStatus struct {
	Course    *models.Course   `json:"course"`
	Creator   *models.User     `json:"creator,omitempty"`
	Lectures  []models.Lecture `json:"lectures"`
	Purchased bool             `json:"purchased"`
}

// GetStatus answers "has this user purchased this course". Purchased is true
// only for a COMPLETED record; absence or any other status reads false.
func (s *PurchaseService) GetStatus(ctx context.Context, userID, courseID int64) (*CourseStatus, error) {
	course, err := s.store.GetCourseByID(ctx, courseID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("course %d not found", courseID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load course")
	}

	lectures, err := s.store.GetLecturesByCourseID(ctx, courseID)
	if err != nil {
		return nil, Internalf(err, "failed to load lectures")
	}

	creator, err := s.store.GetUserByID(ctx, course.CreatorID)
	if err != nil && err != sql.ErrNoRows {
		return nil, Internalf(err, "failed to load creator")
	}

	purchased, err := s.store.HasCompletedPurchase(ctx, userID, courseID)
	if err != nil {
		return nil, Internalf(err, "failed to check purchase status")
	}

	return &CourseStatus{
		Course:    course,
		Creator:   creator,
		Lectures:  lectures,
		Purchased: purchased,
	}, nil
}

// ListCompleted returns every completed purchase with its course, for
// reporting.
func (s *PurchaseService) ListCompleted(ctx context.Context) ([]store.PurchaseWithCourse, error) {
	purchases, err := s.store.GetCompletedPurchases(ctx)
	if err != nil {
		return nil, Internalf(err, "failed to list completed purchases")
	}
	return purchases, nil
}

// GetPending reports whether a pending purchase exists for the pair; the
// Redis marker short-circuits the common resume lookup, the store decides
// when no marker is cached.
func (s *PurchaseService) GetPending(ctx context.Context, userID, courseID int64) (bool, error) {
	if s.redis != nil {
		paymentID, err := s.redis.GetPendingPurchase(ctx, userID, courseID)
		if err != nil {
			s.logger.Warn("Pending marker lookup failed", zap.Error(err))
		} else if paymentID != "" {
			return true, nil
		}
	}

	pending, err := s.store.HasPendingPurchase(ctx, userID, courseID)
	if err != nil {
		return false, Internalf(err, "failed to check pending purchase")
	}
	return pending, nil
}

// applyCompletion grants enrollment for a completed purchase; safe to retry
func (s *PurchaseService) applyCompletion(ctx context.Context, purchase *models.CoursePurchase) error {
	if err := s.store.ApplyPurchaseCompletion(ctx, purchase.UserID, purchase.CourseID); err != nil {
		return Internalf(err, "failed to apply enrollment")
	}
	util.EnrollmentsTotal.Inc()
	return nil
}

// lockPayment serializes manual confirm/fail races on one payment id. The
// lock is best-effort: if Redis is absent or the lock is contended, the CAS
// in the store still decides the winner.
func (s *PurchaseService) lockPayment(ctx context.Context, paymentID string) func() {
	if s.redis == nil {
		return func() {}
	}

	token := uuid.New().String()
	key := "payment:" + paymentID
	ok, err := s.redis.AcquireLock(ctx, key, token, 10*time.Second)
	if err != nil || !ok {
		return func() {}
	}
	return func() {
		if err := s.redis.ReleaseLock(ctx, key, token); err != nil {
			s.logger.Warn("Failed to release payment lock", zap.Error(err))
		}
	}
}

func (s *PurchaseService) publishPurchaseCreated(ctx context.Context, purchase *models.CoursePurchase) {
	if s.events == nil {
		return
	}
	event := &models.PurchaseCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePurchaseCreated),
		PurchaseID: purchase.ID,
		PaymentID:  purchase.PaymentID,
		UserID:     purchase.UserID,
		CourseID:   purchase.CourseID,
		Amount:     purchase.Amount,
	}
	if err := s.events.PublishPurchaseCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseCreated event", zap.Error(err))
	}
}

func (s *PurchaseService) publishPurchaseCompleted(ctx context.Context, purchase *models.CoursePurchase) {
	if s.events == nil {
		return
	}
	event := &models.PurchaseCompletedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePurchaseCompleted),
		PurchaseID: purchase.ID,
		PaymentID:  purchase.PaymentID,
		UserID:     purchase.UserID,
		CourseID:   purchase.CourseID,
		Amount:     purchase.Amount,
	}
	if err := s.events.PublishPurchaseCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseCompleted event", zap.Error(err))
	}
}

func (s *PurchaseService) publishPurchaseFailed(ctx context.Context, purchase *models.CoursePurchase) {
	if s.events == nil {
		return
	}
	event := &models.PurchaseFailedEvent{
		BaseEvent:  newBaseEvent(models.EventTypePurchaseFailed),
		PurchaseID: purchase.ID,
		PaymentID:  purchase.PaymentID,
		UserID:     purchase.UserID,
		CourseID:   purchase.CourseID,
	}
	if err := s.events.PublishPurchaseFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseFailed event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
