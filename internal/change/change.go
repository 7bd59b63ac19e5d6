// Package change describes committed mutations of the sequence space and
// fans them out to interested parties.
package change

import (
	"context"
	"log"
	"time"
)

type Kind string

const (
	StopsReordered  Kind = "stops_reordered"
	StintsReordered Kind = "stints_reordered"
	StopMoved       Kind = "stop_moved"
	StopInserted    Kind = "stop_inserted"
	StopRemoved     Kind = "stop_removed"
	StintInserted   Kind = "stint_inserted"
	StintRemoved    Kind = "stint_removed"
	LegCreated      Kind = "leg_created"
	LegDeleted      Kind = "leg_deleted"
	TripUpdated     Kind = "trip_updated"
	TripDeleted     Kind = "trip_deleted"
	LocationRenamed Kind = "location_renamed"
)

type Change struct {
	Kind     Kind      `json:"kind"`
	TripIDs  []string  `json:"trip_ids"`
	StintIDs []string  `json:"stint_ids"`
	EntityID string    `json:"entity_id"`
	At       time.Time `json:"at"`
}

// Notifier observes committed changes. Implementations must not block for
// long; errors are logged by the fan-out and never undo a commit.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

type NotifierFunc func(ctx context.Context, c Change) error

func (f NotifierFunc) Notify(ctx context.Context, c Change) error { return f(ctx, c) }

type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, c); err != nil {
			log.Printf("change notifier error kind=%s: %v", c.Kind, err)
		}
	}
	return nil
}
