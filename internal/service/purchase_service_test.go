package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-service/internal/models"
	"course-service/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.NewStoreWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func courseRow(id, creatorID int64, price interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "creator_id", "title", "subtitle", "description", "category",
		"level", "price", "thumbnail_url", "is_published", "created_at", "updated_at",
	}).AddRow(id, creatorID, "Go Basics", "", "", "programming", "", price, "", true, now, now)
}

func purchaseRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "course_id", "amount", "status", "payment_id", "created_at", "updated_at",
	}).AddRow(10, 1, 2, int64(4999), status, "pay-1", now, now)
}

func expectGetCourse(mock sqlmock.Sqlmock, courseID int64, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM courses WHERE id = $1")).
		WithArgs(courseID).
		WillReturnRows(rows)
}

func TestPurchaseCreate(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)
	ctx := context.Background()
	now := time.Now()

	expectGetCourse(mock, 2, courseRow(2, 9, int64(4999)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE user_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_purchases")).
		WithArgs(int64(1), int64(2), int64(4999), models.PurchaseStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(10, now, now))

	purchase, err := svc.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPending, purchase.Status)
	assert.Equal(t, int64(4999), purchase.Amount)
	assert.NotEmpty(t, purchase.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseCreateCourseNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM courses WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Create(context.Background(), 1, 2)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPurchaseCreateNoPrice(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	expectGetCourse(mock, 2, courseRow(2, 9, nil))

	_, err := svc.Create(context.Background(), 1, 2)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestPurchaseCreateDuplicate(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	expectGetCourse(mock, 2, courseRow(2, 9, int64(4999)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE user_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(purchaseRow(models.PurchaseStatusFailed))

	// Any prior row blocks, terminal or not.
	_, err := svc.Create(context.Background(), 1, 2)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestPurchaseConfirm(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusCompleted, "pay-1", models.PurchaseStatusPending).
		WillReturnRows(purchaseRow(models.PurchaseStatusCompleted))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	purchase, err := svc.Confirm(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, purchase.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseConfirmRetryConverges(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusCompleted, "pay-1", models.PurchaseStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE payment_id = $1")).
		WithArgs("pay-1").
		WillReturnRows(purchaseRow(models.PurchaseStatusCompleted))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	purchase, err := svc.Confirm(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, purchase.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseConfirmAfterFail(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusCompleted, "pay-1", models.PurchaseStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE payment_id = $1")).
		WithArgs("pay-1").
		WillReturnRows(purchaseRow(models.PurchaseStatusFailed))

	_, err := svc.Confirm(context.Background(), "pay-1")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestPurchaseConfirmNotFound(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusCompleted, "nope", models.PurchaseStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE payment_id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Confirm(context.Background(), "nope")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPurchaseFail(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusFailed, "pay-1", models.PurchaseStatusPending).
		WillReturnRows(purchaseRow(models.PurchaseStatusFailed))

	purchase, err := svc.Fail(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusFailed, purchase.Status)
}

func TestPurchaseFailIdempotent(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusFailed, "pay-1", models.PurchaseStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE payment_id = $1")).
		WithArgs("pay-1").
		WillReturnRows(purchaseRow(models.PurchaseStatusFailed))

	purchase, err := svc.Fail(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusFailed, purchase.Status)
}

func TestPurchaseFailAfterConfirm(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(`UPDATE course_purchases`).
		WithArgs(models.PurchaseStatusFailed, "pay-1", models.PurchaseStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM course_purchases WHERE payment_id = $1")).
		WithArgs("pay-1").
		WillReturnRows(purchaseRow(models.PurchaseStatusCompleted))

	_, err := svc.Fail(context.Background(), "pay-1")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestPurchaseGetStatus(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)
	now := time.Now()

	expectGetCourse(mock, 2, courseRow(2, 9, int64(4999)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM lectures WHERE course_id = $1 ORDER BY position")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "course_id", "title", "video_url", "media_id", "is_preview_free", "position", "created_at",
		}).AddRow(1, 2, "Intro", "", "", true, 1, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "photo_url", "created_at"}).
			AddRow(9, "Ana", "", now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM course_purchases")).
		WithArgs(int64(1), int64(2), models.PurchaseStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	status, err := svc.GetStatus(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, status.Purchased)
	assert.Len(t, status.Lectures, 1)
	require.NotNil(t, status.Creator)
	assert.Equal(t, "Ana", status.Creator.Name)
}

func TestPurchaseGetPending(t *testing.T) {
	s, mock := newTestStore(t)
	svc := NewPurchaseService(s, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM course_purchases")).
		WithArgs(int64(1), int64(2), models.PurchaseStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	pending, err := svc.GetPending(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, pending)
}
