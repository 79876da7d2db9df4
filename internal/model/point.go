package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LocationStatus describes whether a location fix was obtained for a sample.
type LocationStatus string

const (
	// LocationStatusValid is a usable location fix.
	LocationStatusValid LocationStatus = "valid"
	// LocationStatusInaccurate is a fix with poor accuracy.
	LocationStatusInaccurate LocationStatus = "inaccurate"
	// LocationStatusStale is a fix reused from an earlier sample.
	LocationStatusStale LocationStatus = "stale"
	// LocationStatusUnavailable means no fix could be obtained.
	LocationStatusUnavailable LocationStatus = "unavailable"
)

// Mode enumerates detected activity modes.
type Mode string

const (
	ModeStill Mode = "still"
	ModeWalk  Mode = "walk"
	ModeRun   Mode = "run"
	ModeBike  Mode = "bike"
	ModeDrive Mode = "drive"
	// ModeError is emitted by the classifier when it cannot decide.
	ModeError Mode = "error"
)

// PrivacyState governs visibility of a point to other principals.
type PrivacyState string

const (
	PrivacyStatePrivate PrivacyState = "private"
	PrivacyStateShared  PrivacyState = "shared"
)

// SubType describes whether raw sensor data accompanies a point.
type SubType string

const (
	SubTypeModeOnly   SubType = "mode_only"
	SubTypeSensorData SubType = "sensor_data"
)

// Location is the lat/long bundle attached to a point with a fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Provider  string  `json:"provider"`
	Time      int64   `json:"time"`
}

// Point is one mobility observation. Identity is the ID alone; all
// other fields are payload. Points are immutable once constructed.
type Point struct {
	ID                uuid.UUID
	Time              int64
	Timezone          string
	LocationStatus    LocationStatus
	Location          *Location
	Mode              Mode
	PrivacyState      PrivacyState
	SubType           SubType
	SensorData        json.RawMessage
	Features          json.RawMessage
	ClassifierVersion string
}

// NewPointParams contains the raw fields for constructing a Point.
type NewPointParams struct {
	ID                uuid.UUID
	Time              int64
	Timezone          string
	LocationStatus    LocationStatus
	Location          *Location
	Mode              Mode
	PrivacyState      PrivacyState
	SensorData        json.RawMessage
	Features          json.RawMessage
	ClassifierVersion string
}

// NewPoint validates params and builds an immutable Point. The sub-type
// is derived from the sensor payload: all three of sensor data,
// features and classifier version present means sensor_data, all three
// absent means mode_only, anything in between is rejected.
func NewPoint(params NewPointParams) (Point, error) {
	if params.ID == uuid.Nil {
		return Point{}, &InvalidDataError{Field: "id", Reason: "must not be nil"}
	}

	if _, err := time.LoadLocation(params.Timezone); err != nil {
		return Point{}, &InvalidDataError{Field: "timezone", Reason: "unknown timezone " + params.Timezone}
	}

	switch params.LocationStatus {
	case LocationStatusValid, LocationStatusInaccurate, LocationStatusStale, LocationStatusUnavailable:
	default:
		return Point{}, &InvalidDataError{Field: "location_status", Reason: "unknown value " + string(params.LocationStatus)}
	}

	switch params.Mode {
	case ModeStill, ModeWalk, ModeRun, ModeBike, ModeDrive, ModeError:
	default:
		return Point{}, &InvalidDataError{Field: "mode", Reason: "unknown value " + string(params.Mode)}
	}

	switch params.PrivacyState {
	case PrivacyStatePrivate, PrivacyStateShared:
	default:
		return Point{}, &InvalidDataError{Field: "privacy_state", Reason: "unknown value " + string(params.PrivacyState)}
	}

	// A location is present exactly when a fix exists.
	if params.LocationStatus == LocationStatusUnavailable && params.Location != nil {
		return Point{}, &InvalidDataError{Field: "location", Reason: "location present but status is unavailable"}
	}
	if params.LocationStatus != LocationStatusUnavailable && params.Location == nil {
		return Point{}, &InvalidDataError{Field: "location", Reason: "location missing for status " + string(params.LocationStatus)}
	}

	hasSensorData := params.SensorData != nil
	hasFeatures := params.Features != nil
	hasVersion := params.ClassifierVersion != ""

	var subType SubType
	switch {
	case hasSensorData && hasFeatures && hasVersion:
		subType = SubTypeSensorData
	case !hasSensorData && !hasFeatures && !hasVersion:
		subType = SubTypeModeOnly
	default:
		return Point{}, &InvalidDataError{Field: "sensor_data", Reason: "sensor data, features and classifier version must be all present or all absent"}
	}

	return Point{
		ID:                params.ID,
		Time:              params.Time,
		Timezone:          params.Timezone,
		LocationStatus:    params.LocationStatus,
		Location:          params.Location,
		Mode:              params.Mode,
		PrivacyState:      params.PrivacyState,
		SubType:           subType,
		SensorData:        params.SensorData,
		Features:          params.Features,
		ClassifierVersion: params.ClassifierVersion,
	}, nil
}

// Equal reports whether two points carry the same identity.
func (p Point) Equal(other Point) bool {
	return p.ID == other.ID
}

// LocalDate is a calendar date in some point's own timezone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// LocalDateAt interprets epoch milliseconds in the given location.
func LocalDateAt(millis int64, loc *time.Location) LocalDate {
	year, month, day := time.UnixMilli(millis).In(loc).Date()
	return LocalDate{Year: year, Month: month, Day: day}
}

// DayBucket is the min/max observation time of one calendar-day and
// timezone group of a user's points.
type DayBucket struct {
	MinMillis int64
	MaxMillis int64
	Timezone  string
}
