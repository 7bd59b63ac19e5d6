package auth

import (
	"context"
	"errors"

	"backend-roadtrip/internal/db"
	"backend-roadtrip/internal/trip"

	"github.com/jackc/pgx/v5"
)

// Policy answers authorization questions from trip membership.
type Policy struct {
	db db.Querier
}

func NewPolicy(db db.Querier) *Policy {
	return &Policy{db: db}
}

// CanMoveAcrossTrips allows a cross-trip stop move when the requester may
// edit both the source and the target trip.
func (p *Policy) CanMoveAcrossTrips(ctx context.Context, requesterID, sourceStintID, targetStintID string) (bool, error) {
	if requesterID == "" {
		return false, nil
	}
	for _, stintID := range []string{sourceStintID, targetStintID} {
		ok, err := p.canEditStint(ctx, requesterID, stintID)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (p *Policy) canEditStint(ctx context.Context, userID, stintID string) (bool, error) {
	var role string
	err := p.db.QueryRow(ctx, `
		SELECT m.role
		FROM stints s
		JOIN trip_members m ON m.trip_id = s.trip_id AND m.user_id = $2
		WHERE s.id = $1
	`, stintID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == trip.RoleOwner || role == trip.RoleEditor, nil
}
