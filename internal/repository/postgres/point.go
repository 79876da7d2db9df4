package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ohmage/mobility-store/internal/model"
)

var _ model.PointStore = (*PointRepository)(nil)

const millisPerDay = 86400000

type PointRepository struct {
	db *Connection
}

func NewPointRepository(db *Connection) *PointRepository {
	return &PointRepository{
		db: db,
	}
}

// Create inserts the base row and, for sensor-data points, the extended
// row in one transaction. A uuid that is already committed leaves the
// insert a no-op and surfaces as model.ErrDuplicatePoint; no partial
// rows survive any failure.
func (r *PointRepository) Create(ctx context.Context, username, client string, point model.Point) error {
	query := `
		INSERT INTO mobility_points (uuid, user_id, client, epoch_millis, phone_timezone, location_status, location, mode, privacy_state)
		VALUES ($1, (SELECT id FROM users WHERE username = $2), $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uuid) DO NOTHING
		RETURNING id`

	extendedQuery := `
		INSERT INTO mobility_extended (mobility_id, sensor_data, features, classifier_version)
		VALUES ($1, $2, $3, $4)`

	var locationJSON []byte
	if point.Location != nil {
		var err error
		locationJSON, err = json.Marshal(point.Location)
		if err != nil {
			return &model.StorageError{Op: "encode point location", Key: point.ID.String(), Err: err}
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return &model.StorageError{Op: "begin create point", Key: point.ID.String(), Err: err}
	}
	defer tx.Rollback(ctx)

	var rowID int64
	err = tx.QueryRow(ctx, query,
		point.ID, username, client,
		point.Time, point.Timezone,
		string(point.LocationStatus), locationJSON,
		string(point.Mode), string(point.PrivacyState),
	).Scan(&rowID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrDuplicatePoint
		}
		return &model.StorageError{Op: "create point", Key: fmt.Sprintf("%s/%s", username, point.ID), Err: err}
	}

	if point.SubType == model.SubTypeSensorData {
		_, err = tx.Exec(ctx, extendedQuery, rowID, point.SensorData, point.Features, point.ClassifierVersion)
		if err != nil {
			return &model.StorageError{Op: "create extended point", Key: fmt.Sprintf("%s/%s", username, point.ID), Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &model.StorageError{Op: "commit create point", Key: point.ID.String(), Err: err}
	}

	return nil
}

func (r *PointRepository) FindIDs(ctx context.Context, username string, filter model.PointFilter) ([]uuid.UUID, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT m.uuid
		FROM mobility_points m
		JOIN users u ON u.id = m.user_id
		WHERE u.username = $1`)
	args := appendFilterClauses(&sb, []any{username}, filter)

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, &model.StorageError{Op: "find point ids", Key: username, Err: err}
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, &model.StorageError{Op: "find point ids", Key: username, Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "find point ids", Key: username, Err: err}
	}

	return ids, nil
}

func (r *PointRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Point, error) {
	query := pointSelect + `
		WHERE m.uuid = ANY($1)
		ORDER BY m.epoch_millis`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, &model.StorageError{Op: "get points by ids", Err: err}
	}
	defer rows.Close()

	return collectPoints(rows, "get points by ids")
}

func (r *PointRepository) GetFiltered(ctx context.Context, username string, filter model.PointFilter) ([]model.Point, error) {
	var sb strings.Builder
	sb.WriteString(pointSelect)
	sb.WriteString(`
		JOIN users u ON u.id = m.user_id
		WHERE u.username = $1`)
	args := appendFilterClauses(&sb, []any{username}, filter)
	sb.WriteString(" ORDER BY m.epoch_millis")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, &model.StorageError{Op: "get filtered points", Key: username, Err: err}
	}
	defer rows.Close()

	return collectPoints(rows, "get filtered points")
}

func (r *PointRepository) LastUploadTime(ctx context.Context, username string) (*time.Time, error) {
	query := `
		SELECT MAX(m.epoch_millis)
		FROM mobility_points m
		JOIN users u ON u.id = m.user_id
		WHERE u.username = $1`

	var maxMillis *int64
	if err := r.db.QueryRow(ctx, query, username).Scan(&maxMillis); err != nil {
		return nil, &model.StorageError{Op: "get last upload time", Key: username, Err: err}
	}
	if maxMillis == nil {
		return nil, nil
	}

	t := time.UnixMilli(*maxMillis).UTC()
	return &t, nil
}

// DayBuckets groups by truncated epoch day and timezone, the same
// bucketing the aggregate active-date computation has always used.
// Buckets can straddle true local-day boundaries near DST transitions.
func (r *PointRepository) DayBuckets(ctx context.Context, username string, start, end int64) ([]model.DayBucket, error) {
	query := fmt.Sprintf(`
		SELECT MIN(m.epoch_millis), MAX(m.epoch_millis), m.phone_timezone
		FROM mobility_points m
		JOIN users u ON u.id = m.user_id
		WHERE u.username = $1
		AND m.epoch_millis >= $2
		AND m.epoch_millis <= $3
		GROUP BY m.epoch_millis / %d, m.phone_timezone`, millisPerDay)

	rows, err := r.db.Query(ctx, query, username, start, end)
	if err != nil {
		return nil, &model.StorageError{Op: "get day buckets", Key: username, Err: err}
	}
	defer rows.Close()

	var buckets []model.DayBucket
	for rows.Next() {
		var b model.DayBucket
		if err := rows.Scan(&b.MinMillis, &b.MaxMillis, &b.Timezone); err != nil {
			return nil, &model.StorageError{Op: "get day buckets", Key: username, Err: err}
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "get day buckets", Key: username, Err: err}
	}

	return buckets, nil
}

const pointSelect = `
		SELECT m.uuid, m.epoch_millis, m.phone_timezone, m.location_status, m.location,
		       m.mode, m.privacy_state, me.sensor_data, me.features, me.classifier_version
		FROM mobility_points m
		LEFT JOIN mobility_extended me ON me.mobility_id = m.id`

// appendFilterClauses compiles the present predicates of the filter
// into AND clauses, extending args with their positional parameters.
func appendFilterClauses(sb *strings.Builder, args []any, filter model.PointFilter) []any {
	if filter.Client != nil {
		args = append(args, *filter.Client)
		fmt.Fprintf(sb, " AND m.client = $%d", len(args))
	}
	if filter.CreatedOnOrAfter != nil {
		args = append(args, *filter.CreatedOnOrAfter)
		fmt.Fprintf(sb, " AND m.epoch_millis >= $%d", len(args))
	}
	if filter.CreatedOnOrBefore != nil {
		args = append(args, *filter.CreatedOnOrBefore)
		fmt.Fprintf(sb, " AND m.epoch_millis <= $%d", len(args))
	}
	if filter.UploadedOnOrAfter != nil {
		args = append(args, *filter.UploadedOnOrAfter)
		fmt.Fprintf(sb, " AND m.upload_timestamp >= $%d", len(args))
	}
	if filter.UploadedOnOrBefore != nil {
		args = append(args, *filter.UploadedOnOrBefore)
		fmt.Fprintf(sb, " AND m.upload_timestamp <= $%d", len(args))
	}
	if filter.PrivacyState != nil {
		args = append(args, string(*filter.PrivacyState))
		fmt.Fprintf(sb, " AND m.privacy_state = $%d", len(args))
	}
	if filter.LocationStatus != nil {
		args = append(args, string(*filter.LocationStatus))
		fmt.Fprintf(sb, " AND m.location_status = $%d", len(args))
	}
	if filter.Mode != nil {
		args = append(args, string(*filter.Mode))
		fmt.Fprintf(sb, " AND m.mode = $%d", len(args))
	}
	return args
}

func collectPoints(rows pgx.Rows, op string) ([]model.Point, error) {
	var points []model.Point
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			var corrupt *model.CorruptRecordError
			if errors.As(err, &corrupt) {
				return nil, err
			}
			return nil, &model.StorageError{Op: op, Err: err}
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: op, Err: err}
	}

	return points, nil
}

// scanPoint rebuilds a point through the validating constructor, so
// malformed stored data surfaces as a CorruptRecordError instead of
// leaking an invalid entity.
func scanPoint(rows pgx.Rows) (model.Point, error) {
	var (
		id                uuid.UUID
		epochMillis       int64
		timezone          string
		locationStatus    string
		locationJSON      []byte
		mode              string
		privacyState      string
		sensorData        []byte
		features          []byte
		classifierVersion *string
	)

	err := rows.Scan(
		&id, &epochMillis, &timezone, &locationStatus, &locationJSON,
		&mode, &privacyState, &sensorData, &features, &classifierVersion,
	)
	if err != nil {
		return model.Point{}, err
	}

	var location *model.Location
	if locationJSON != nil {
		location = &model.Location{}
		if err := json.Unmarshal(locationJSON, location); err != nil {
			return model.Point{}, &model.CorruptRecordError{ID: id, Err: err}
		}
	}

	var version string
	if classifierVersion != nil {
		version = *classifierVersion
	}

	point, err := model.NewPoint(model.NewPointParams{
		ID:                id,
		Time:              epochMillis,
		Timezone:          timezone,
		LocationStatus:    model.LocationStatus(locationStatus),
		Location:          location,
		Mode:              model.Mode(mode),
		PrivacyState:      model.PrivacyState(privacyState),
		SensorData:        sensorData,
		Features:          features,
		ClassifierVersion: version,
	})
	if err != nil {
		return model.Point{}, &model.CorruptRecordError{ID: id, Err: err}
	}

	return point, nil
}
