package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-service/internal/models"
)

func TestCanViewLecturePreview(t *testing.T) {
	s, mock := newTestStore(t)
	gate := NewAccessGate(s)

	expectGetLecture(mock, 9, lectureRow(9, 2, true))

	// A free preview is visible without any purchase lookup.
	ok, err := gate.CanViewLecture(context.Background(), 1, 2, 9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanViewLecturePurchased(t *testing.T) {
	s, mock := newTestStore(t)
	gate := NewAccessGate(s)

	expectGetLecture(mock, 9, lectureRow(9, 2, false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM course_purchases")).
		WithArgs(int64(1), int64(2), models.PurchaseStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := gate.CanViewLecture(context.Background(), 1, 2, 9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanViewLectureDenied(t *testing.T) {
	s, mock := newTestStore(t)
	gate := NewAccessGate(s)

	expectGetLecture(mock, 9, lectureRow(9, 2, false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM course_purchases")).
		WithArgs(int64(1), int64(2), models.PurchaseStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := gate.CanViewLecture(context.Background(), 1, 2, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanViewLectureWrongCourse(t *testing.T) {
	s, mock := newTestStore(t)
	gate := NewAccessGate(s)

	expectGetLecture(mock, 9, lectureRow(9, 77, true))

	_, err := gate.CanViewLecture(context.Background(), 1, 2, 9)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCanViewLectureMissing(t *testing.T) {
	s, mock := newTestStore(t)
	gate := NewAccessGate(s)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM lectures WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := gate.CanViewLecture(context.Background(), 1, 2, 9)
	assert.Equal(t, KindNotFound, KindOf(err))
}
