// Package location manages the named places that stints and stops point
// at. Names resolved here are what timelines show as start and end
// location names.
package location

import (
	"context"
	"errors"
	"sort"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/db"
	"backend-roadtrip/internal/model"
	"backend-roadtrip/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultRadiusKm = 25.0

type Service struct {
	db       db.Querier
	notifier change.Notifier
}

func NewService(db db.Querier, notifier change.Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

func (s *Service) CreateLocation(ctx context.Context, input model.Location) (model.Location, error) {
	if input.Name == "" {
		return model.Location{}, apperr.Validation("name required")
	}
	if err := validCoordinates(input.Lat, input.Lng); err != nil {
		return model.Location{}, err
	}
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO locations (id, name, description, lat, lng, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.Name, input.Description, input.Lat, input.Lng, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return model.Location{}, err
	}
	return input, nil
}

func (s *Service) GetLocation(ctx context.Context, id string) (model.Location, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, lat, lng, created_by, created_at
		FROM locations WHERE id=$1
	`, id)
	var loc model.Location
	err := row.Scan(&loc.ID, &loc.Name, &loc.Description, &loc.Lat, &loc.Lng, &loc.CreatedBy, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Location{}, apperr.NotFound("location", id)
	}
	if err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// UpdateLocation applies the non-zero fields of patch. A rename reaches
// every trip whose stints or stops refer to the location.
func (s *Service) UpdateLocation(ctx context.Context, id string, patch model.Location) (model.Location, error) {
	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return model.Location{}, err
	}
	renamed := patch.Name != "" && patch.Name != loc.Name
	if patch.Name != "" {
		loc.Name = patch.Name
	}
	if patch.Description != "" {
		loc.Description = patch.Description
	}
	if patch.Lat != 0 {
		loc.Lat = patch.Lat
	}
	if patch.Lng != 0 {
		loc.Lng = patch.Lng
	}
	if err := validCoordinates(loc.Lat, loc.Lng); err != nil {
		return model.Location{}, err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE locations
		SET name=$2, description=$3, lat=$4, lng=$5
		WHERE id=$1
	`, loc.ID, loc.Name, loc.Description, loc.Lat, loc.Lng)
	if err != nil {
		return model.Location{}, err
	}
	if renamed {
		s.notifyRename(ctx, loc.ID)
	}
	return loc, nil
}

// DeleteLocation fails with a conflict while any stint or stop still
// refers to the location.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	trips, err := s.tripsReferencing(ctx, id)
	if err != nil {
		return err
	}
	if len(trips) > 0 {
		return apperr.Conflict("location %s is used by %d trip(s)", id, len(trips))
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM locations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("location", id)
	}
	return nil
}

// Nearby lists locations within radiusKm of the point, closest first.
// The query narrows by bounding box and the exact cut uses great-circle
// distance.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]model.Location, error) {
	if err := validCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	minLat, maxLat, minLng, maxLng := geo.BoundingBox(lat, lng, radiusKm)
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, lat, lng, created_by, created_at
		FROM locations
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
	`, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type hit struct {
		loc model.Location
		km  float64
	}
	var hits []hit
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Description, &loc.Lat, &loc.Lng, &loc.CreatedBy, &loc.CreatedAt); err != nil {
			return nil, err
		}
		if km := geo.HaversineKm(lat, lng, loc.Lat, loc.Lng); km <= radiusKm {
			hits = append(hits, hit{loc, km})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].km < hits[j].km })

	out := make([]model.Location, len(hits))
	for i, h := range hits {
		out[i] = h.loc
	}
	return out, nil
}

func (s *Service) tripsReferencing(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id FROM stints WHERE start_location_id=$1 OR end_location_id=$1
		UNION
		SELECT trip_id FROM stops WHERE location_id=$1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []string
	for rows.Next() {
		var tripID string
		if err := rows.Scan(&tripID); err != nil {
			return nil, err
		}
		trips = append(trips, tripID)
	}
	return trips, rows.Err()
}

func (s *Service) notifyRename(ctx context.Context, id string) {
	if s.notifier == nil {
		return
	}
	trips, err := s.tripsReferencing(ctx, id)
	if err != nil || len(trips) == 0 {
		return
	}
	_ = s.notifier.Notify(ctx, change.Change{
		Kind:     change.LocationRenamed,
		TripIDs:  trips,
		EntityID: id,
	})
}

func validCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperr.Validation("coordinates %v,%v out of range", lat, lng)
	}
	return nil
}
