package service

import (
	"context"
	"database/sql"

	"course-service/internal/models"
	"course-service/internal/store"
	"course-service/internal/util"

	"go.uber.org/zap"
)

// CourseService handles catalog authoring: courses, lectures, publishing and
// search. Media upload lives outside this service; lectures only carry the
// URL and media id handed to them.
type CourseService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCourseService creates a new course service
func NewCourseService(store *store.Store) *CourseService {
	return &CourseService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateCourseRequest carries the required creation fields
type CreateCourseRequest struct {
	CreatorID int64  `json:"creator_id"`
	Title     string `json:"title" binding:"required"`
	Category  string `json:"category" binding:"required"`
}

// CreateCourse creates an unpublished course owned by the instructor
func (s *CourseService) CreateCourse(ctx context.Context, req *CreateCourseRequest) (*models.Course, error) {
	if req.Title == "" || req.Category == "" {
		return nil, InvalidInputf("course title and category are required")
	}

	course := &models.Course{
		CreatorID: req.CreatorID,
		Title:     req.Title,
		Category:  req.Category,
	}
	if err := s.store.CreateCourse(ctx, course); err != nil {
		return nil, Internalf(err, "failed to create course")
	}

	s.logger.Info("Course created",
		zap.Int64("course_id", course.ID),
		zap.Int64("creator_id", req.CreatorID))
	return course, nil
}

// EditCourseRequest carries a partial course update; nil fields are left
// untouched. Price distinguishes unset (nil pointer) from cleared.
type EditCourseRequest struct {
	Title        *string `json:"title"`
	Subtitle     *string `json:"subtitle"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Level        *string `json:"level"`
	Price        *int64  `json:"price"`
	ClearPrice   bool    `json:"clear_price"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

// EditCourse applies a partial update to a course
func (s *CourseService) EditCourse(ctx context.Context, courseID int64, req *EditCourseRequest) (*models.Course, error) {
	course, err := s.store.GetCourseByID(ctx, courseID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("course %d not found", courseID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load course")
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Subtitle != nil {
		course.Subtitle = *req.Subtitle
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Price != nil {
		course.Price = req.Price
	}
	if req.ClearPrice {
		course.Price = nil
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = *req.ThumbnailURL
	}

	if err := s.store.UpdateCourse(ctx, course); err != nil {
		return nil, Internalf(err, "failed to update course")
	}
	return course, nil
}

// TogglePublish sets the published flag of a course
func (s *CourseService) TogglePublish(ctx context.Context, courseID int64, publish bool) error {
	err := s.store.SetCoursePublished(ctx, courseID, publish)
	if err == sql.ErrNoRows {
		return NotFoundf("course %d not found", courseID)
	}
	if err != nil {
		return Internalf(err, "failed to update publish status")
	}

	s.logger.Info("Course publish status changed",
		zap.Int64("course_id", courseID),
		zap.Bool("published", publish))
	return nil
}

// GetCourse retrieves a course by ID
func (s *CourseService) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.store.GetCourseByID(ctx, courseID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("course %d not found", courseID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load course")
	}
	return course, nil
}

// GetCreatorCourses retrieves all courses owned by an instructor
func (s *CourseService) GetCreatorCourses(ctx context.Context, creatorID int64) ([]models.Course, error) {
	courses, err := s.store.GetCoursesByCreator(ctx, creatorID)
	if err != nil {
		return nil, Internalf(err, "failed to load creator courses")
	}
	return courses, nil
}

// ListPublished retrieves all published courses
func (s *CourseService) ListPublished(ctx context.Context) ([]models.Course, error) {
	courses, err := s.store.GetPublishedCourses(ctx)
	if err != nil {
		return nil, Internalf(err, "failed to load published courses")
	}
	return courses, nil
}

// Search matches published courses on a free-text query, optionally narrowed
// by categories and sorted by price ("low" or "high").
func (s *CourseService) Search(ctx context.Context, query string, categories []string, sortByPrice string) ([]models.Course, error) {
	courses, err := s.store.SearchCourses(ctx, query, categories, sortByPrice)
	if err != nil {
		return nil, Internalf(err, "failed to search courses")
	}
	return courses, nil
}

// CreateLecture appends a lecture to a course
func (s *CourseService) CreateLecture(ctx context.Context, courseID int64, title string) (*models.Lecture, error) {
	if title == "" {
		return nil, InvalidInputf("lecture title is required")
	}

	if _, err := s.store.GetCourseByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NotFoundf("course %d not found", courseID)
		}
		return nil, Internalf(err, "failed to load course")
	}

	lecture := &models.Lecture{
		CourseID: courseID,
		Title:    title,
	}
	if err := s.store.CreateLecture(ctx, lecture); err != nil {
		return nil, Internalf(err, "failed to create lecture")
	}

	s.logger.Info("Lecture created",
		zap.Int64("lecture_id", lecture.ID),
		zap.Int64("course_id", courseID))
	return lecture, nil
}

// EditLectureRequest carries a partial lecture update
type EditLectureRequest struct {
	Title         *string `json:"title"`
	VideoURL      *string `json:"video_url"`
	MediaID       *string `json:"media_id"`
	IsPreviewFree *bool   `json:"is_preview_free"`
}

// EditLecture applies a partial update to a lecture
func (s *CourseService) EditLecture(ctx context.Context, lectureID int64, req *EditLectureRequest) (*models.Lecture, error) {
	lecture, err := s.store.GetLectureByID(ctx, lectureID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("lecture %d not found", lectureID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load lecture")
	}

	if req.Title != nil {
		lecture.Title = *req.Title
	}
	if req.VideoURL != nil {
		lecture.VideoURL = *req.VideoURL
	}
	if req.MediaID != nil {
		lecture.MediaID = *req.MediaID
	}
	if req.IsPreviewFree != nil {
		lecture.IsPreviewFree = *req.IsPreviewFree
	}

	if err := s.store.UpdateLecture(ctx, lecture); err != nil {
		return nil, Internalf(err, "failed to update lecture")
	}
	return lecture, nil
}

// RemoveLecture deletes a lecture from its course
func (s *CourseService) RemoveLecture(ctx context.Context, lectureID int64) error {
	err := s.store.DeleteLecture(ctx, lectureID)
	if err == sql.ErrNoRows {
		return NotFoundf("lecture %d not found", lectureID)
	}
	if err != nil {
		return Internalf(err, "failed to remove lecture")
	}
	return nil
}

// GetLecture retrieves a lecture by ID
func (s *CourseService) GetLecture(ctx context.Context, lectureID int64) (*models.Lecture, error) {
	lecture, err := s.store.GetLectureByID(ctx, lectureID)
	if err == sql.ErrNoRows {
		return nil, NotFoundf("lecture %d not found", lectureID)
	}
	if err != nil {
		return nil, Internalf(err, "failed to load lecture")
	}
	return lecture, nil
}

// GetCourseLectures retrieves a course's lectures in course order
func (s *CourseService) GetCourseLectures(ctx context.Context, courseID int64) ([]models.Lecture, error) {
	if _, err := s.store.GetCourseByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NotFoundf("course %d not found", courseID)
		}
		return nil, Internalf(err, "failed to load course")
	}

	lectures, err := s.store.GetLecturesByCourseID(ctx, courseID)
	if err != nil {
		return nil, Internalf(err, "failed to load lectures")
	}
	return lectures, nil
}
