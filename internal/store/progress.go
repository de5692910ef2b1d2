package store

import (
	"context"
	"database/sql"

	"course-service/internal/models"
)

// GetProgress retrieves the progress row for a (user, course) pair; returns
// (nil, nil) when the pair has no record yet.
func (s *Store) GetProgress(ctx context.Context, userID, courseID int64) (*models.CourseProgress, error) {
	var progress models.CourseProgress
	err := s.db.GetContext(ctx, &progress,
		"SELECT * FROM course_progress WHERE user_id = $1 AND course_id = $2", userID, courseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetLectureProgress retrieves the viewed-state entries for a progress row
func (s *Store) GetLectureProgress(ctx context.Context, progressID int64) ([]models.LectureProgress, error) {
	var entries []models.LectureProgress
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM lecture_progress WHERE progress_id = $1 ORDER BY lecture_id", progressID)
	return entries, err
}

// MarkLectureViewed records a viewed lecture in one transaction: the progress
// row is created lazily, the entry is an atomic upsert (no read-then-write
// race, the primary key forbids duplicates), and the completed flag is
// recomputed by set difference against the course's current lecture set.
// Courses with zero lectures never read as completed. Returns the progress
// row after the update and whether this call flipped completed from false to
// true.
func (s *Store) MarkLectureViewed(ctx context.Context, userID, courseID, lectureID int64) (*models.CourseProgress, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var progress models.CourseProgress
	err = tx.GetContext(ctx, &progress, `
		INSERT INTO course_progress (user_id, course_id, completed)
		VALUES ($1, $2, false)
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET updated_at = NOW()
		RETURNING *`,
		userID, courseID)
	if err != nil {
		return nil, false, err
	}
	wasCompleted := progress.Completed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lecture_progress (progress_id, lecture_id, viewed)
		VALUES ($1, $2, true)
		ON CONFLICT (progress_id, lecture_id)
		DO UPDATE SET viewed = true, updated_at = NOW()`,
		progress.ID, lectureID)
	if err != nil {
		return nil, false, err
	}

	err = tx.GetContext(ctx, &progress, `
		UPDATE course_progress
		SET completed = (
			EXISTS (SELECT 1 FROM lectures WHERE course_id = $2)
			AND NOT EXISTS (
				SELECT 1 FROM lectures l
				WHERE l.course_id = $2
				AND NOT EXISTS (
					SELECT 1 FROM lecture_progress lp
					WHERE lp.progress_id = $1 AND lp.lecture_id = l.id AND lp.viewed
				)
			)
		), updated_at = NOW()
		WHERE id = $1
		RETURNING *`,
		progress.ID, courseID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &progress, progress.Completed && !wasCompleted, nil
}

// SetAllLecturesViewed force-completes a course for a user: every lecture
// currently in the course gets a viewed=true entry (missing entries are
// created, not just flipped) and the completed flag is set accordingly. A
// zero-lecture course stays incomplete.
func (s *Store) SetAllLecturesViewed(ctx context.Context, progressID, courseID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lecture_progress (progress_id, lecture_id, viewed)
		SELECT $1, id, true FROM lectures WHERE course_id = $2
		ON CONFLICT (progress_id, lecture_id)
		DO UPDATE SET viewed = true, updated_at = NOW()`,
		progressID, courseID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE course_progress
		SET completed = EXISTS (SELECT 1 FROM lectures WHERE course_id = $2), updated_at = NOW()
		WHERE id = $1`,
		progressID, courseID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SetAllLecturesUnviewed resets every entry of a progress row to viewed=false
// and clears the completed flag.
func (s *Store) SetAllLecturesUnviewed(ctx context.Context, progressID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE lecture_progress SET viewed = false, updated_at = NOW() WHERE progress_id = $1",
		progressID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE course_progress SET completed = false, updated_at = NOW() WHERE id = $1",
		progressID)
	if err != nil {
		return err
	}

	return tx.Commit()
}
