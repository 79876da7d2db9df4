package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohmage/mobility-store/internal/model"
)

func TestNewPointRepository(t *testing.T) {
	db := &Connection{}
	repo := NewPointRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewUserRepository(t *testing.T) {
	db := &Connection{}
	repo := NewUserRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestAppendFilterClauses_Empty(t *testing.T) {
	var sb strings.Builder
	args := appendFilterClauses(&sb, []any{"alice"}, model.PointFilter{})

	assert.Empty(t, sb.String())
	assert.Equal(t, []any{"alice"}, args)
}

func TestAppendFilterClauses_SinglePredicates(t *testing.T) {
	uploaded := time.Date(2012, time.May, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		filter     model.PointFilter
		wantClause string
		wantArg    any
	}{
		{
			name:       "client",
			filter:     model.PointFilter{}.WithClient("phone-app"),
			wantClause: " AND m.client = $2",
			wantArg:    "phone-app",
		},
		{
			name:       "created on or after",
			filter:     model.PointFilter{}.WithCreatedOnOrAfter(1000),
			wantClause: " AND m.epoch_millis >= $2",
			wantArg:    int64(1000),
		},
		{
			name:       "created on or before",
			filter:     model.PointFilter{}.WithCreatedOnOrBefore(2000),
			wantClause: " AND m.epoch_millis <= $2",
			wantArg:    int64(2000),
		},
		{
			name:       "uploaded on or after",
			filter:     model.PointFilter{}.WithUploadedOnOrAfter(uploaded),
			wantClause: " AND m.upload_timestamp >= $2",
			wantArg:    uploaded,
		},
		{
			name:       "uploaded on or before",
			filter:     model.PointFilter{}.WithUploadedOnOrBefore(uploaded),
			wantClause: " AND m.upload_timestamp <= $2",
			wantArg:    uploaded,
		},
		{
			name:       "privacy state",
			filter:     model.PointFilter{}.WithPrivacyState(model.PrivacyStateShared),
			wantClause: " AND m.privacy_state = $2",
			wantArg:    "shared",
		},
		{
			name:       "location status",
			filter:     model.PointFilter{}.WithLocationStatus(model.LocationStatusValid),
			wantClause: " AND m.location_status = $2",
			wantArg:    "valid",
		},
		{
			name:       "mode",
			filter:     model.PointFilter{}.WithMode(model.ModeBike),
			wantClause: " AND m.mode = $2",
			wantArg:    "bike",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			args := appendFilterClauses(&sb, []any{"alice"}, tt.filter)

			assert.Equal(t, tt.wantClause, sb.String())
			require.Len(t, args, 2)
			assert.Equal(t, tt.wantArg, args[1])
		})
	}
}

func TestAppendFilterClauses_Conjunction(t *testing.T) {
	filter := model.PointFilter{}.
		WithCreatedBetween(1000, 2000).
		WithPrivacyState(model.PrivacyStatePrivate).
		WithLocationStatus(model.LocationStatusValid)

	var sb strings.Builder
	args := appendFilterClauses(&sb, []any{"alice"}, filter)

	assert.Equal(t,
		" AND m.epoch_millis >= $2 AND m.epoch_millis <= $3 AND m.privacy_state = $4 AND m.location_status = $5",
		sb.String())
	assert.Equal(t, []any{"alice", int64(1000), int64(2000), "private", "valid"}, args)
}
