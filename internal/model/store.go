package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PointStore defines persistence operations for mobility points.
type PointStore interface {
	// Create inserts a new point for the user. It returns
	// ErrDuplicatePoint when a point with the same id is already
	// committed; the base and extended rows commit atomically.
	Create(ctx context.Context, username, client string, point Point) error
	// FindIDs returns the ids of the user's points matching the
	// filter, in no particular order.
	FindIDs(ctx context.Context, username string, filter PointFilter) ([]uuid.UUID, error)
	// GetByIDs hydrates full points for the given ids, ordered
	// ascending by observation time.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Point, error)
	// GetFiltered returns the user's points matching the filter,
	// ordered ascending by observation time.
	GetFiltered(ctx context.Context, username string, filter PointFilter) ([]Point, error)
	// LastUploadTime returns the latest observation time across the
	// user's points, or nil if the user has none.
	LastUploadTime(ctx context.Context, username string) (*time.Time, error)
	// DayBuckets returns min/max observation millis per calendar-day
	// and timezone group within the inclusive range [start, end].
	DayBuckets(ctx context.Context, username string, start, end int64) ([]DayBucket, error)
}
