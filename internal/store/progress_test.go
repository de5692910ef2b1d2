package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressColumns() []string {
	return []string{"id", "user_id", "course_id", "completed", "updated_at"}
}

func TestGetProgressMissing(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_progress WHERE user_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnError(sql.ErrNoRows)

	progress, err := s.GetProgress(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestMarkLectureViewed(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO course_progress \(user_id, course_id, completed\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, false, now))
	mock.ExpectExec(`INSERT INTO lecture_progress \(progress_id, lecture_id, viewed\)`).
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE course_progress\s+SET completed =`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, false, now))
	mock.ExpectCommit()

	progress, completedNow, err := s.MarkLectureViewed(ctx, 1, 2, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(5), progress.ID)
	assert.False(t, completedNow)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkLectureViewedCompletesCourse(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO course_progress \(user_id, course_id, completed\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, false, now))
	mock.ExpectExec(`INSERT INTO lecture_progress \(progress_id, lecture_id, viewed\)`).
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE course_progress\s+SET completed =`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, true, now))
	mock.ExpectCommit()

	progress, completedNow, err := s.MarkLectureViewed(ctx, 1, 2, 9)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.True(t, completedNow)
}

func TestMarkLectureViewedAlreadyCompleted(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO course_progress \(user_id, course_id, completed\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, true, now))
	mock.ExpectExec(`INSERT INTO lecture_progress \(progress_id, lecture_id, viewed\)`).
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE course_progress\s+SET completed =`).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, true, now))
	mock.ExpectCommit()

	_, completedNow, err := s.MarkLectureViewed(ctx, 1, 2, 9)
	require.NoError(t, err)
	assert.False(t, completedNow, "a repeat view of a completed course is not a completion edge")
}

func TestMarkLectureViewedRollsBackOnError(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO course_progress \(user_id, course_id, completed\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressColumns()).AddRow(5, 1, 2, false, now))
	mock.ExpectExec(`INSERT INTO lecture_progress \(progress_id, lecture_id, viewed\)`).
		WithArgs(int64(5), int64(9)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, _, err := s.MarkLectureViewed(ctx, 1, 2, 9)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAllLecturesViewed(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lecture_progress \(progress_id, lecture_id, viewed\)\s+SELECT \$1, id, true FROM lectures`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE course_progress\s+SET completed = EXISTS`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetAllLecturesViewed(ctx, 5, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAllLecturesUnviewed(t *testing.T) {
	s, mock := newTestStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lecture_progress SET viewed = false, updated_at = NOW() WHERE progress_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_progress SET completed = false, updated_at = NOW() WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetAllLecturesUnviewed(ctx, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
