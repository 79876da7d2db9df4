package model

import "time"

// PointFilter is a conjunction of optional predicates over a user's
// points. A nil field means the predicate is absent; all present
// predicates are ANDed. Created bounds are inclusive epoch millis,
// uploaded bounds are inclusive server timestamps.
type PointFilter struct {
	Client             *string
	CreatedOnOrAfter   *int64
	CreatedOnOrBefore  *int64
	UploadedOnOrAfter  *time.Time
	UploadedOnOrBefore *time.Time
	PrivacyState       *PrivacyState
	LocationStatus     *LocationStatus
	Mode               *Mode
}

// WithClient restricts results to points uploaded by the client.
func (f PointFilter) WithClient(client string) PointFilter {
	f.Client = &client
	return f
}

// WithCreatedOnOrAfter restricts results to points observed at or
// after the given epoch millis.
func (f PointFilter) WithCreatedOnOrAfter(millis int64) PointFilter {
	f.CreatedOnOrAfter = &millis
	return f
}

// WithCreatedOnOrBefore restricts results to points observed at or
// before the given epoch millis.
func (f PointFilter) WithCreatedOnOrBefore(millis int64) PointFilter {
	f.CreatedOnOrBefore = &millis
	return f
}

// WithCreatedBetween restricts results to the inclusive observation
// range [start, end] in epoch millis.
func (f PointFilter) WithCreatedBetween(start, end int64) PointFilter {
	f.CreatedOnOrAfter = &start
	f.CreatedOnOrBefore = &end
	return f
}

// WithUploadedOnOrAfter restricts results by server upload time.
func (f PointFilter) WithUploadedOnOrAfter(t time.Time) PointFilter {
	f.UploadedOnOrAfter = &t
	return f
}

// WithUploadedOnOrBefore restricts results by server upload time.
func (f PointFilter) WithUploadedOnOrBefore(t time.Time) PointFilter {
	f.UploadedOnOrBefore = &t
	return f
}

// WithPrivacyState restricts results to one privacy state.
func (f PointFilter) WithPrivacyState(p PrivacyState) PointFilter {
	f.PrivacyState = &p
	return f
}

// WithLocationStatus restricts results to one location status.
func (f PointFilter) WithLocationStatus(s LocationStatus) PointFilter {
	f.LocationStatus = &s
	return f
}

// WithMode restricts results to one activity mode.
func (f PointFilter) WithMode(m Mode) PointFilter {
	f.Mode = &m
	return f
}
