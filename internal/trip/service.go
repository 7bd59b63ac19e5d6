package trip

import (
	"context"
	"errors"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db       db.Querier
	notifier change.Notifier
}

func NewService(db db.Querier, notifier change.Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// CreateTrip stores the trip and makes its creator the owner.
func (s *Service) CreateTrip(ctx context.Context, input Trip) (Trip, error) {
	if input.Title == "" || input.CreatedBy == "" {
		return Trip{}, apperr.Validation("title and created_by required")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return Trip{}, apperr.Validation("end_date before start_date")
	}
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, title, description, start_date, end_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.Title, input.Description, input.StartDate, input.EndDate, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Trip{}, err
	}
	if _, err := s.AddMember(ctx, input.ID, input.CreatedBy, RoleOwner); err != nil {
		return Trip{}, err
	}
	return input, nil
}

func (s *Service) UpdateTrip(ctx context.Context, id string, patch Trip) (Trip, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return Trip{}, err
	}
	if patch.Title != "" {
		trip.Title = patch.Title
	}
	if patch.Description != "" {
		trip.Description = patch.Description
	}
	if patch.StartDate != nil {
		trip.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		trip.EndDate = patch.EndDate
	}

	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET title=$2, description=$3, start_date=$4, end_date=$5
		WHERE id=$1
	`, trip.ID, trip.Title, trip.Description, trip.StartDate, trip.EndDate)
	if err != nil {
		return Trip{}, err
	}
	s.notify(ctx, change.TripUpdated, trip.ID)
	return trip, nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, title, description, start_date, end_date, created_by, created_at
		FROM trips WHERE id=$1
	`, id)
	var trip Trip
	if err := row.Scan(&trip.ID, &trip.Title, &trip.Description, &trip.StartDate, &trip.EndDate, &trip.CreatedBy, &trip.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trip{}, apperr.NotFound("trip", id)
		}
		return Trip{}, err
	}
	return trip, nil
}

// DeleteTrip removes the trip. Stints, stops and legs go with it through
// the schema's cascading foreign keys.
func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("trip", id)
	}
	s.notify(ctx, change.TripDeleted, id)
	return nil
}

func (s *Service) AddMember(ctx context.Context, tripID, userID, role string) (TripMember, error) {
	if role == "" {
		role = RoleViewer
	}
	if !validRole(role) {
		return TripMember{}, apperr.Validation("unknown role %q", role)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO trip_members (trip_id, user_id, role)
		VALUES ($1,$2,$3)
		ON CONFLICT (trip_id, user_id) DO UPDATE SET role=EXCLUDED.role
		RETURNING joined_at
	`, tripID, userID, role)
	member := TripMember{TripID: tripID, UserID: userID, Role: role}
	if err := row.Scan(&member.JoinedAt); err != nil {
		return TripMember{}, err
	}
	return member, nil
}

func (s *Service) Members(ctx context.Context, tripID string) ([]TripMember, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id, user_id, role, joined_at
		FROM trip_members WHERE trip_id=$1
		ORDER BY joined_at
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []TripMember
	for rows.Next() {
		var m TripMember
		if err := rows.Scan(&m.TripID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Service) notify(ctx context.Context, kind change.Kind, tripID string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, change.Change{Kind: kind, TripIDs: []string{tripID}, EntityID: tripID, At: time.Now().UTC()})
}
