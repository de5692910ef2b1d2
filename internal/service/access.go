package service

import (
	"context"
	"database/sql"

	"course-service/internal/store"
	"course-service/internal/util"
)

// AccessGate decides lecture visibility. Access is a predicate over the
// lecture's preview flag and the viewer's completed purchase; it is derived
// on every call and never written back to lecture metadata, so granting one
// purchaser access can never unlock content for anyone else.
type AccessGate struct {
	store *store.Store
}

// NewAccessGate creates a new access gate
func NewAccessGate(store *store.Store) *AccessGate {
	return &AccessGate{store: store}
}

// CanViewLecture reports whether the user may view the lecture
func (g *AccessGate) CanViewLecture(ctx context.Context, userID, courseID, lectureID int64) (bool, error) {
	lecture, err := g.store.GetLectureByID(ctx, lectureID)
	if err == sql.ErrNoRows {
		return false, NotFoundf("lecture %d not found", lectureID)
	}
	if err != nil {
		return false, Internalf(err, "failed to load lecture")
	}
	if lecture.CourseID != courseID {
		return false, NotFoundf("lecture %d does not belong to course %d", lectureID, courseID)
	}

	if lecture.IsPreviewFree {
		util.AccessChecksTotal.WithLabelValues("preview").Inc()
		return true, nil
	}

	purchased, err := g.HasPurchased(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	if purchased {
		util.AccessChecksTotal.WithLabelValues("purchased").Inc()
	} else {
		util.AccessChecksTotal.WithLabelValues("denied").Inc()
	}
	return purchased, nil
}

// HasPurchased reports whether a COMPLETED purchase exists for the pair
func (g *AccessGate) HasPurchased(ctx context.Context, userID, courseID int64) (bool, error) {
	purchased, err := g.store.HasCompletedPurchase(ctx, userID, courseID)
	if err != nil {
		return false, Internalf(err, "failed to check purchase")
	}
	return purchased, nil
}
