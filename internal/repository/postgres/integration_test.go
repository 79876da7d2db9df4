//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ohmage/mobility-store/internal/model"
	repo "github.com/ohmage/mobility-store/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "mobility_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/mobility_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func makeTestPoint(t *testing.T, millis int64, status model.LocationStatus, privacy model.PrivacyState, mode model.Mode) model.Point {
	t.Helper()

	params := model.NewPointParams{
		ID:             uuid.New(),
		Time:           millis,
		Timezone:       "America/Los_Angeles",
		LocationStatus: status,
		Mode:           mode,
		PrivacyState:   privacy,
	}
	if status != model.LocationStatusUnavailable {
		params.Location = &model.Location{
			Latitude:  34.0689,
			Longitude: -118.4452,
			Accuracy:  8,
			Provider:  "gps",
			Time:      millis,
		}
	}

	point, err := model.NewPoint(params)
	require.NoError(t, err)
	return point
}

func TestPointRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	users := repo.NewUserRepository(conn)
	points := repo.NewPointRepository(conn)

	_, err = users.Create(ctx, "alice")
	require.NoError(t, err)

	t.Run("user_resolver", func(t *testing.T) {
		u, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)

		_, err = users.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("round_trip", func(t *testing.T) {
		point := makeTestPoint(t, 1335940200000, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeWalk)

		require.NoError(t, points.Create(ctx, "alice", "phone-app", point))

		got, err := points.GetByIDs(ctx, []uuid.UUID{point.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, point.ID, got[0].ID)
		assert.Equal(t, point.Time, got[0].Time)
		assert.Equal(t, point.Timezone, got[0].Timezone)
		assert.Equal(t, point.LocationStatus, got[0].LocationStatus)
		assert.Equal(t, point.Location, got[0].Location)
		assert.Equal(t, point.Mode, got[0].Mode)
		assert.Equal(t, point.PrivacyState, got[0].PrivacyState)
		assert.Equal(t, point.SubType, got[0].SubType)
	})

	t.Run("sensor_data_round_trip", func(t *testing.T) {
		point := makeTestPoint(t, 1335940260000, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeRun)
		point, err := model.NewPoint(model.NewPointParams{
			ID:                point.ID,
			Time:              point.Time,
			Timezone:          point.Timezone,
			LocationStatus:    point.LocationStatus,
			Location:          point.Location,
			Mode:              point.Mode,
			PrivacyState:      point.PrivacyState,
			SensorData:        json.RawMessage(`{"accel": [0.1, 0.2]}`),
			Features:          json.RawMessage(`{"fft": [1, 2]}`),
			ClassifierVersion: "1.2",
		})
		require.NoError(t, err)

		require.NoError(t, points.Create(ctx, "alice", "phone-app", point))

		got, err := points.GetByIDs(ctx, []uuid.UUID{point.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.SubTypeSensorData, got[0].SubType)
		assert.JSONEq(t, string(point.SensorData), string(got[0].SensorData))
		assert.JSONEq(t, string(point.Features), string(got[0].Features))
		assert.Equal(t, "1.2", got[0].ClassifierVersion)
	})

	t.Run("duplicate_create_is_idempotent", func(t *testing.T) {
		point := makeTestPoint(t, 1335940320000, model.LocationStatusValid, model.PrivacyStateShared, model.ModeStill)

		require.NoError(t, points.Create(ctx, "alice", "phone-app", point))
		err := points.Create(ctx, "alice", "phone-app", point)
		assert.ErrorIs(t, err, model.ErrDuplicatePoint)

		got, err := points.GetByIDs(ctx, []uuid.UUID{point.ID})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("filtered_fetch_is_ordered_and_conjunctive", func(t *testing.T) {
		_, err := users.Create(ctx, "bob")
		require.NoError(t, err)

		base := int64(1335900000000)
		inserted := []model.Point{
			makeTestPoint(t, base+3000, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeWalk),
			makeTestPoint(t, base+1000, model.LocationStatusValid, model.PrivacyStateShared, model.ModeWalk),
			makeTestPoint(t, base+2000, model.LocationStatusStale, model.PrivacyStatePrivate, model.ModeDrive),
		}
		for _, p := range inserted {
			require.NoError(t, points.Create(ctx, "bob", "phone-app", p))
		}

		all, err := points.GetFiltered(ctx, "bob", model.PointFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.LessOrEqual(t, all[i-1].Time, all[i].Time)
		}

		// Combined filter must equal the intersection of the singles.
		private, err := points.FindIDs(ctx, "bob", model.PointFilter{}.WithPrivacyState(model.PrivacyStatePrivate))
		require.NoError(t, err)
		valid, err := points.FindIDs(ctx, "bob", model.PointFilter{}.WithLocationStatus(model.LocationStatusValid))
		require.NoError(t, err)
		both, err := points.FindIDs(ctx, "bob", model.PointFilter{}.
			WithPrivacyState(model.PrivacyStatePrivate).
			WithLocationStatus(model.LocationStatusValid))
		require.NoError(t, err)

		intersection := make(map[uuid.UUID]bool)
		for _, id := range private {
			intersection[id] = true
		}
		var want []uuid.UUID
		for _, id := range valid {
			if intersection[id] {
				want = append(want, id)
			}
		}
		assert.ElementsMatch(t, want, both)
		assert.Len(t, both, 1)
	})

	t.Run("last_upload_time", func(t *testing.T) {
		_, err := users.Create(ctx, "carol")
		require.NoError(t, err)

		last, err := points.LastUploadTime(ctx, "carol")
		require.NoError(t, err)
		assert.Nil(t, last)

		p1 := makeTestPoint(t, 1335940200000, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeWalk)
		p2 := makeTestPoint(t, 1335943800000, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeWalk)
		require.NoError(t, points.Create(ctx, "carol", "phone-app", p1))
		require.NoError(t, points.Create(ctx, "carol", "phone-app", p2))

		last, err = points.LastUploadTime(ctx, "carol")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, time.UnixMilli(1335943800000).UTC(), *last)
	})

	t.Run("day_buckets", func(t *testing.T) {
		_, err := users.Create(ctx, "dave")
		require.NoError(t, err)

		la, err := time.LoadLocation("America/Los_Angeles")
		require.NoError(t, err)
		early := time.Date(2012, time.May, 1, 9, 0, 0, 0, la).UnixMilli()
		late := time.Date(2012, time.May, 1, 11, 0, 0, 0, la).UnixMilli()

		require.NoError(t, points.Create(ctx, "dave", "phone-app",
			makeTestPoint(t, early, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeWalk)))
		require.NoError(t, points.Create(ctx, "dave", "phone-app",
			makeTestPoint(t, late, model.LocationStatusValid, model.PrivacyStatePrivate, model.ModeStill)))

		buckets, err := points.DayBuckets(ctx, "dave", early-1, late+1)
		require.NoError(t, err)
		require.Len(t, buckets, 1)
		assert.Equal(t, early, buckets[0].MinMillis)
		assert.Equal(t, late, buckets[0].MaxMillis)
		assert.Equal(t, "America/Los_Angeles", buckets[0].Timezone)
	})
}
