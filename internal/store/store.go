// Package store holds the id-indexed entity store behind the sequencing
// and timeline packages. Parents never embed children; reverse lookups go
// through the List* queries.
package store

import (
	"context"

	"backend-roadtrip/internal/model"
)

// EntityStore is the persistence collaborator. List* results are ordered
// by sequence_number.
type EntityStore interface {
	GetStint(ctx context.Context, id string) (model.Stint, error)
	GetStop(ctx context.Context, id string) (model.Stop, error)
	GetLeg(ctx context.Context, id string) (model.Leg, error)
	FindLegByStops(ctx context.Context, startStopID, endStopID string) (model.Leg, error)

	ListStintsByTrip(ctx context.Context, tripID string) ([]model.Stint, error)
	ListStopsByStint(ctx context.Context, stintID string) ([]model.Stop, error)
	ListLegsByStint(ctx context.Context, stintID string) ([]model.Leg, error)

	SaveStint(ctx context.Context, s model.Stint) error
	SaveStop(ctx context.Context, s model.Stop) error
	SaveLeg(ctx context.Context, l model.Leg) error

	DeleteStint(ctx context.Context, id string) error
	DeleteStop(ctx context.Context, id string) error
	DeleteLeg(ctx context.Context, id string) error

	// LockTrip and LockStints serialise writers touching the same
	// sequence space until the surrounding transaction ends.
	LockTrip(ctx context.Context, tripID string) error
	LockStints(ctx context.Context, ids ...string) error
}

// Transactor runs fn as one all-or-nothing unit of work. Any error
// returned by fn aborts the unit with no observable partial state.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s EntityStore) error) error
}

type Store interface {
	EntityStore
	Transactor
	NameOf(ctx context.Context, locationID string) (string, error)
}
