package store

import (
	"context"
	"errors"
	"fmt"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/db"
	"backend-roadtrip/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres is the pgx-backed Store. The schema keeps
// UNIQUE (stint_id, sequence_number) and UNIQUE (trip_id, sequence_number)
// DEFERRABLE INITIALLY DEFERRED so range shifts can pass through
// transient duplicates inside a transaction, and
// UNIQUE (start_stop_id, end_stop_id) on legs.
type Postgres struct {
	queries
	pool db.TxQuerier
}

func NewPostgres(pool db.TxQuerier) *Postgres {
	return &Postgres{queries: queries{db: pool}, pool: pool}
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, s EntityStore) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err, "commit tx")
	}
	return nil
}

func (p *Postgres) NameOf(ctx context.Context, locationID string) (string, error) {
	var name string
	err := p.db.QueryRow(ctx, `SELECT name FROM locations WHERE id=$1`, locationID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("location", locationID)
	}
	return name, err
}

type queries struct {
	db db.Querier
}

func (q queries) GetStint(ctx context.Context, id string) (model.Stint, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, trip_id, sequence_number, name, COALESCE(start_location_id::text,''), COALESCE(end_location_id::text,''),
		       distance, estimated_duration, notes, departure_time, created_at
		FROM stints WHERE id=$1
	`, id)
	st, err := scanStint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Stint{}, apperr.NotFound("stint", id)
	}
	return st, err
}

func (q queries) GetStop(ctx context.Context, id string) (model.Stop, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, stint_id, trip_id, sequence_number, COALESCE(location_id::text,''), name, stop_type, lat, lng,
		       arrival_time, departure_time, duration, notes, created_at
		FROM stops WHERE id=$1
	`, id)
	st, err := scanStop(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Stop{}, apperr.NotFound("stop", id)
	}
	return st, err
}

func (q queries) GetLeg(ctx context.Context, id string) (model.Leg, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, stint_id, sequence_number, start_stop_id, end_stop_id, distance, estimated_travel_time,
		       route_type, polyline, notes, created_at
		FROM legs WHERE id=$1
	`, id)
	l, err := scanLeg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Leg{}, apperr.NotFound("leg", id)
	}
	return l, err
}

func (q queries) FindLegByStops(ctx context.Context, startStopID, endStopID string) (model.Leg, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, stint_id, sequence_number, start_stop_id, end_stop_id, distance, estimated_travel_time,
		       route_type, polyline, notes, created_at
		FROM legs WHERE start_stop_id=$1 AND end_stop_id=$2
	`, startStopID, endStopID)
	l, err := scanLeg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Leg{}, apperr.NotFound("leg", startStopID+"->"+endStopID)
	}
	return l, err
}

func (q queries) ListStintsByTrip(ctx context.Context, tripID string) ([]model.Stint, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, trip_id, sequence_number, name, COALESCE(start_location_id::text,''), COALESCE(end_location_id::text,''),
		       distance, estimated_duration, notes, departure_time, created_at
		FROM stints WHERE trip_id=$1
		ORDER BY sequence_number, id
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stints []model.Stint
	for rows.Next() {
		st, err := scanStint(rows)
		if err != nil {
			return nil, err
		}
		stints = append(stints, st)
	}
	return stints, rows.Err()
}

func (q queries) ListStopsByStint(ctx context.Context, stintID string) ([]model.Stop, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, stint_id, trip_id, sequence_number, COALESCE(location_id::text,''), name, stop_type, lat, lng,
		       arrival_time, departure_time, duration, notes, created_at
		FROM stops WHERE stint_id=$1
		ORDER BY sequence_number, id
	`, stintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []model.Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

func (q queries) ListLegsByStint(ctx context.Context, stintID string) ([]model.Leg, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, stint_id, sequence_number, start_stop_id, end_stop_id, distance, estimated_travel_time,
		       route_type, polyline, notes, created_at
		FROM legs WHERE stint_id=$1
		ORDER BY sequence_number, id
	`, stintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []model.Leg
	for rows.Next() {
		l, err := scanLeg(rows)
		if err != nil {
			return nil, err
		}
		legs = append(legs, l)
	}
	return legs, rows.Err()
}

func (q queries) SaveStint(ctx context.Context, s model.Stint) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO stints (id, trip_id, sequence_number, name, start_location_id, end_location_id,
		                    distance, estimated_duration, notes, departure_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE
		SET trip_id=EXCLUDED.trip_id, sequence_number=EXCLUDED.sequence_number, name=EXCLUDED.name,
		    start_location_id=EXCLUDED.start_location_id, end_location_id=EXCLUDED.end_location_id,
		    distance=EXCLUDED.distance, estimated_duration=EXCLUDED.estimated_duration,
		    notes=EXCLUDED.notes, departure_time=EXCLUDED.departure_time
	`, s.ID, s.TripID, s.SequenceNumber, s.Name, nullString(s.StartLocationID), nullString(s.EndLocationID),
		s.Distance, s.EstimatedDuration, s.Notes, s.DepartureTime)
	return translate(err, "save stint "+s.ID)
}

func (q queries) SaveStop(ctx context.Context, s model.Stop) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO stops (id, stint_id, trip_id, sequence_number, location_id, name, stop_type, lat, lng,
		                   arrival_time, departure_time, duration, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE
		SET stint_id=EXCLUDED.stint_id, trip_id=EXCLUDED.trip_id, sequence_number=EXCLUDED.sequence_number,
		    location_id=EXCLUDED.location_id, name=EXCLUDED.name, stop_type=EXCLUDED.stop_type,
		    lat=EXCLUDED.lat, lng=EXCLUDED.lng, arrival_time=EXCLUDED.arrival_time,
		    departure_time=EXCLUDED.departure_time, duration=EXCLUDED.duration, notes=EXCLUDED.notes
	`, s.ID, s.StintID, s.TripID, s.SequenceNumber, nullString(s.LocationID), s.Name, string(s.StopType), s.Lat, s.Lng,
		s.ArrivalTime, s.DepartureTime, s.Duration, s.Notes)
	return translate(err, "save stop "+s.ID)
}

func (q queries) SaveLeg(ctx context.Context, l model.Leg) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO legs (id, stint_id, sequence_number, start_stop_id, end_stop_id, distance,
		                  estimated_travel_time, route_type, polyline, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE
		SET stint_id=EXCLUDED.stint_id, sequence_number=EXCLUDED.sequence_number,
		    start_stop_id=EXCLUDED.start_stop_id, end_stop_id=EXCLUDED.end_stop_id,
		    distance=EXCLUDED.distance, estimated_travel_time=EXCLUDED.estimated_travel_time,
		    route_type=EXCLUDED.route_type, polyline=EXCLUDED.polyline, notes=EXCLUDED.notes
	`, l.ID, l.StintID, l.SequenceNumber, l.StartStopID, l.EndStopID, l.Distance,
		l.EstimatedTravelTime, l.RouteType, l.Polyline, l.Notes)
	return translate(err, "save leg "+l.ID)
}

func (q queries) DeleteStint(ctx context.Context, id string) error {
	return q.deleteByID(ctx, `DELETE FROM stints WHERE id=$1`, "stint", id)
}

func (q queries) DeleteStop(ctx context.Context, id string) error {
	return q.deleteByID(ctx, `DELETE FROM stops WHERE id=$1`, "stop", id)
}

func (q queries) DeleteLeg(ctx context.Context, id string) error {
	return q.deleteByID(ctx, `DELETE FROM legs WHERE id=$1`, "leg", id)
}

func (q queries) deleteByID(ctx context.Context, sql, entity, id string) error {
	tag, err := q.db.Exec(ctx, sql, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

func (q queries) LockTrip(ctx context.Context, tripID string) error {
	var id string
	err := q.db.QueryRow(ctx, `SELECT id FROM trips WHERE id=$1 FOR UPDATE`, tripID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("trip", tripID)
	}
	return err
}

func (q queries) LockStints(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	// Stable lock order avoids deadlocks between two-stint moves.
	_, err := q.db.Exec(ctx, `
		SELECT id FROM stints WHERE id = ANY($1) ORDER BY id FOR UPDATE
	`, ids)
	return err
}

func scanStint(row pgx.Row) (model.Stint, error) {
	var st model.Stint
	err := row.Scan(&st.ID, &st.TripID, &st.SequenceNumber, &st.Name, &st.StartLocationID, &st.EndLocationID,
		&st.Distance, &st.EstimatedDuration, &st.Notes, &st.DepartureTime, &st.CreatedAt)
	return st, err
}

func scanStop(row pgx.Row) (model.Stop, error) {
	var st model.Stop
	var stopType string
	err := row.Scan(&st.ID, &st.StintID, &st.TripID, &st.SequenceNumber, &st.LocationID, &st.Name, &stopType, &st.Lat, &st.Lng,
		&st.ArrivalTime, &st.DepartureTime, &st.Duration, &st.Notes, &st.CreatedAt)
	st.StopType = model.StopType(stopType)
	return st, err
}

func scanLeg(row pgx.Row) (model.Leg, error) {
	var l model.Leg
	err := row.Scan(&l.ID, &l.StintID, &l.SequenceNumber, &l.StartStopID, &l.EndStopID, &l.Distance,
		&l.EstimatedTravelTime, &l.RouteType, &l.Polyline, &l.Notes, &l.CreatedAt)
	return l, err
}

func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, err, op)
		case pgForeignKeyViolation:
			// e.g. a stop or stint naming a location that does not exist
			return apperr.Wrap(apperr.KindValidation, err, op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
