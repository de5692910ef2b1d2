package service

import (
	"context"
	"database/sql"

	"course-service/internal/broker"
	"course-service/internal/models"
	"course-service/internal/store"
	"course-service/internal/util"

	"go.uber.org/zap"
)

// ProgressService records per-lecture viewed state and derives course
// completion. All mutations are atomic upserts in the store, so concurrent
// calls for the same (user, course) cannot lose updates.
type ProgressService struct {
	store  *store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(store *store.Store, events *broker.EventPublisher) *ProgressService {
	return &ProgressService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// MarkViewed records that the user has viewed a lecture of the course. The
// progress record is created lazily on first view; repeating the call is a
// no-op. Completion flips to true only when every lecture currently in the
// course has been viewed, and never for a course with zero lectures.
func (s *ProgressService) MarkViewed(ctx context.Context, userID, courseID, lectureID int64) error {
	ctx, span := util.StartSpan(ctx, "ProgressService.MarkViewed")
	defer span.End()

	lecture, err := s.store.GetLectureByID(ctx, lectureID)
	if err == sql.ErrNoRows {
		return NotFoundf("lecture %d not found", lectureID)
	}
	if err != nil {
		return Internalf(err, "failed to load lecture")
	}
	if lecture.CourseID != courseID {
		return NotFoundf("lecture %d does not belong to course %d", lectureID, courseID)
	}

	_, completedNow, err := s.store.MarkLectureViewed(ctx, userID, courseID, lectureID)
	if err != nil {
		return Internalf(err, "failed to record lecture progress")
	}

	util.LecturesViewedTotal.Inc()
	s.logger.Debug("Lecture marked viewed",
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID),
		zap.Int64("lecture_id", lectureID))

	s.publishLectureViewed(ctx, userID, courseID, lectureID)
	if completedNow {
		util.CoursesCompletedTotal.Inc()
		s.logger.Info("Course completed",
			zap.Int64("user_id", userID),
			zap.Int64("course_id", courseID))
		s.publishCourseCompleted(ctx, userID, courseID)
	}
	return nil
}

// MarkCourseCompleted force-completes the course for the user. Every lecture
// currently in the course gets a viewed entry, so this cannot disagree with
// the derived completion check even when lectures were added after the
// progress record was created. A course with zero views so far cannot be
// force-completed.
func (s *ProgressService) MarkCourseCompleted(ctx context.Context, userID, courseID int64) error {
	ctx, span := util.StartSpan(ctx, "ProgressService.MarkCourseCompleted")
	defer span.End()

	progress, err := s.store.GetProgress(ctx, userID, courseID)
	if err != nil {
		return Internalf(err, "failed to load progress")
	}
	if progress == nil {
		return NotFoundf("no progress for user %d on course %d", userID, courseID)
	}

	if err := s.store.SetAllLecturesViewed(ctx, progress.ID, courseID); err != nil {
		return Internalf(err, "failed to mark course completed")
	}

	// Zero-lecture courses stay incomplete, so nothing to announce.
	count, err := s.store.CountLecturesByCourseID(ctx, courseID)
	if err != nil {
		return Internalf(err, "failed to count lectures")
	}
	if !progress.Completed && count > 0 {
		util.CoursesCompletedTotal.Inc()
		s.publishCourseCompleted(ctx, userID, courseID)
	}
	return nil
}

// MarkCourseIncomplete resets every viewed entry and the completed flag
func (s *ProgressService) MarkCourseIncomplete(ctx context.Context, userID, courseID int64) error {
	ctx, span := util.StartSpan(ctx, "ProgressService.MarkCourseIncomplete")
	defer span.End()

	progress, err := s.store.GetProgress(ctx, userID, courseID)
	if err != nil {
		return Internalf(err, "failed to load progress")
	}
	if progress == nil {
		return NotFoundf("no progress for user %d on course %d", userID, courseID)
	}

	if err := s.store.SetAllLecturesUnviewed(ctx, progress.ID); err != nil {
		return Internalf(err, "failed to mark course incomplete")
	}
	return nil
}

// CourseProgressView is the course with lectures expanded plus the user's
// viewed entries and derived completion.
type CourseProgressView struct {
	Course    *models.Course           `json:"course"`
	Lectures  []models.Lecture         `json:"lectures"`
	Progress  []models.LectureProgress `json:"progress"`
	Completed bool                     `json:"completed"`
}

// GetProgress returns the user's progress for a course. A first-time viewer
// has no record yet; that is not an error and reads as an empty entry list
// with completed=false.
func (s *ProgressService) GetProgress(ctx context.Context, userID, courseID int64) (*CourseProgressView, error) {
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

	view := &CourseProgressView{
		Course:   course,
		Lectures: lectures,
		Progress: []models.LectureProgress{},
	}

	progress, err := s.store.GetProgress(ctx, userID, courseID)
	if err != nil {
		return nil, Internalf(err, "failed to load progress")
	}
	if progress == nil {
		return view, nil
	}

	entries, err := s.store.GetLectureProgress(ctx, progress.ID)
	if err != nil {
		return nil, Internalf(err, "failed to load progress entries")
	}
	if entries != nil {
		view.Progress = entries
	}
	view.Completed = progress.Completed
	return view, nil
}

func (s *ProgressService) publishLectureViewed(ctx context.Context, userID, courseID, lectureID int64) {
	if s.events == nil {
		return
	}
	event := &models.LectureViewedEvent{
		BaseEvent: newBaseEvent(models.EventTypeLectureViewed),
		UserID:    userID,
		CourseID:  courseID,
		LectureID: lectureID,
	}
	if err := s.events.PublishLectureViewed(ctx, event); err != nil {
		s.logger.Error("Failed to publish LectureViewed event", zap.Error(err))
	}
}

func (s *ProgressService) publishCourseCompleted(ctx context.Context, userID, courseID int64) {
	if s.events == nil {
		return
	}
	event := &models.CourseCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeCourseCompleted),
		UserID:    userID,
		CourseID:  courseID,
	}
	if err := s.events.PublishCourseCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CourseCompleted event", zap.Error(err))
	}
}
