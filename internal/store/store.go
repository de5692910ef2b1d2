package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"course-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection; used by tests
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateCourse inserts a new course and fills in generated fields
func (s *Store) CreateCourse(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (creator_id, title, subtitle, description, category, level, price, thumbnail_url, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, course, query,
		course.CreatorID, course.Title, course.Subtitle, course.Description,
		course.Category, course.Level, course.Price, course.ThumbnailURL, course.IsPublished)
}

// GetCourseByID retrieves a course by ID
func (s *Store) GetCourseByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	err := s.db.GetContext(ctx, &course, "SELECT * FROM courses WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse persists edited course fields
func (s *Store) UpdateCourse(ctx context.Context, course *models.Course) error {
	query := `
		UPDATE courses
		SET title = $1, subtitle = $2, description = $3, category = $4,
		    level = $5, price = $6, thumbnail_url = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	return s.db.GetContext(ctx, &course.UpdatedAt, query,
		course.Title, course.Subtitle, course.Description, course.Category,
		course.Level, course.Price, course.ThumbnailURL, course.ID)
}

// SetCoursePublished flips the published flag
func (s *Store) SetCoursePublished(ctx context.Context, courseID int64, published bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE courses SET is_published = $1, updated_at = NOW() WHERE id = $2",
		published, courseID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetCoursesByCreator retrieves all courses owned by an instructor
func (s *Store) GetCoursesByCreator(ctx context.Context, creatorID int64) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.SelectContext(ctx, &courses,
		"SELECT * FROM courses WHERE creator_id = $1 ORDER BY created_at DESC", creatorID)
	return courses, err
}

// GetPublishedCourses retrieves all published courses
func (s *Store) GetPublishedCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.SelectContext(ctx, &courses,
		"SELECT * FROM courses WHERE is_published = true ORDER BY created_at DESC")
	return courses, err
}

// SearchCourses matches published courses on title, subtitle or category,
// optionally narrowed to a category set and sorted by price.
func (s *Store) SearchCourses(ctx context.Context, query string, categories []string, sortByPrice string) ([]models.Course, error) {
	sqlQuery := `
		SELECT * FROM courses
		WHERE is_published = true
		  AND (title ILIKE $1 OR subtitle ILIKE $1 OR category ILIKE $1)`
	args := []interface{}{"%" + query + "%"}

	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, c := range categories {
			args = append(args, c)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		sqlQuery += " AND category IN (" + strings.Join(placeholders, ", ") + ")"
	}

	switch sortByPrice {
	case "low":
		sqlQuery += " ORDER BY price ASC NULLS LAST"
	case "high":
		sqlQuery += " ORDER BY price DESC NULLS LAST"
	default:
		sqlQuery += " ORDER BY created_at DESC"
	}

	var courses []models.Course
	err := s.db.SelectContext(ctx, &courses, sqlQuery, args...)
	return courses, err
}

// CreateLecture inserts a lecture at the end of the course's lecture list
func (s *Store) CreateLecture(ctx context.Context, lecture *models.Lecture) error {
	query := `
		INSERT INTO lectures (course_id, title, video_url, media_id, is_preview_free, position)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM lectures WHERE course_id = $1))
		RETURNING id, position, created_at`

	return s.db.GetContext(ctx, lecture, query,
		lecture.CourseID, lecture.Title, lecture.VideoURL, lecture.MediaID, lecture.IsPreviewFree)
}

// GetLectureByID retrieves a lecture by ID
func (s *Store) GetLectureByID(ctx context.Context, id int64) (*models.Lecture, error) {
	var lecture models.Lecture
	err := s.db.GetContext(ctx, &lecture, "SELECT * FROM lectures WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

// UpdateLecture persists edited lecture fields
func (s *Store) UpdateLecture(ctx context.Context, lecture *models.Lecture) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lectures
		 SET title = $1, video_url = $2, media_id = $3, is_preview_free = $4
		 WHERE id = $5`,
		lecture.Title, lecture.VideoURL, lecture.MediaID, lecture.IsPreviewFree, lecture.ID)
	return err
}

// DeleteLecture removes a lecture from its course
func (s *Store) DeleteLecture(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM lectures WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetLecturesByCourseID retrieves a course's lectures in course order
func (s *Store) GetLecturesByCourseID(ctx context.Context, courseID int64) ([]models.Lecture, error) {
	var lectures []models.Lecture
	err := s.db.SelectContext(ctx, &lectures,
		"SELECT * FROM lectures WHERE course_id = $1 ORDER BY position", courseID)
	return lectures, err
}

// CountLecturesByCourseID counts lectures belonging to a course
func (s *Store) CountLecturesByCourseID(ctx context.Context, courseID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM lectures WHERE course_id = $1", courseID)
	return count, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
