package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ohmage/mobility-store/internal/logger"
	"github.com/ohmage/mobility-store/internal/model"
)

const millisPerHour = int64(time.Hour / time.Millisecond)

// Mobility handles point uploads and the derived statistics over a
// user's point history. It never mutates stored points.
type Mobility struct {
	pointStore model.PointStore
	userStore  model.UserStore
	logger     *logger.Logger
	now        func() time.Time
}

func NewMobility(
	pointStore model.PointStore,
	userStore model.UserStore,
	logger *logger.Logger,
) *Mobility {
	return &Mobility{
		pointStore: pointStore,
		userStore:  userStore,
		logger:     logger,
		now:        time.Now,
	}
}

// UploadPoint persists a point for the user. A resubmitted id is
// absorbed: clients retrying a timed-out upload legitimately resend
// the same uuid, so the duplicate is logged and dropped.
func (s *Mobility) UploadPoint(ctx context.Context, username, client string, point model.Point) error {
	if _, err := s.userStore.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("unknown user %q: %w", username, err)
		}
		return fmt.Errorf("failed to get user by username: %w", err)
	}

	if err := s.pointStore.Create(ctx, username, client, point); err != nil {
		if errors.Is(err, model.ErrDuplicatePoint) {
			s.logger.Warn("duplicate mobility point ignored",
				"username", username,
				"client", client,
				"id", point.ID.String())
			return nil
		}
		return fmt.Errorf("failed to create point: %w", err)
	}

	return nil
}

// LastUpload returns the time of the user's latest point, or nil if
// the user has never uploaded.
func (s *Mobility) LastUpload(ctx context.Context, username string) (*time.Time, error) {
	return s.pointStore.LastUploadTime(ctx, username)
}

// LocationCoverage returns the fraction of the user's points in the
// lookback window that carry a location, or nil when the window holds
// no points at all. Nil and a 0.0 ratio are distinct: nil means "no
// data", 0.0 means every point lacked a fix.
func (s *Mobility) LocationCoverage(ctx context.Context, username string, lookbackHours int) (*float64, error) {
	if lookbackHours <= 0 {
		return nil, nil
	}

	since := s.now().UnixMilli() - int64(lookbackHours)*millisPerHour
	filter := model.PointFilter{}.WithCreatedOnOrAfter(since)

	points, err := s.pointStore.GetFiltered(ctx, username, filter)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	var withLocation int
	for _, point := range points {
		if point.Location != nil {
			withLocation++
		}
	}

	ratio := float64(withLocation) / float64(len(points))
	return &ratio, nil
}

// ActiveDates returns the set of local calendar dates on which the
// user recorded points within [start, end] epoch millis. Each bucket's
// min and max times are reinterpreted in the bucket's own timezone, so
// a late-evening point lands on its local day, not the UTC day.
func (s *Mobility) ActiveDates(ctx context.Context, username string, start, end int64) (map[model.LocalDate]struct{}, error) {
	buckets, err := s.pointStore.DayBuckets(ctx, username, start, end)
	if err != nil {
		return nil, err
	}

	dates := make(map[model.LocalDate]struct{})
	for _, bucket := range buckets {
		loc, err := time.LoadLocation(bucket.Timezone)
		if err != nil {
			return nil, &model.CorruptRecordError{Err: fmt.Errorf("stored timezone %q: %w", bucket.Timezone, err)}
		}

		dates[model.LocalDateAt(bucket.MinMillis, loc)] = struct{}{}
		dates[model.LocalDateAt(bucket.MaxMillis, loc)] = struct{}{}
	}

	return dates, nil
}
