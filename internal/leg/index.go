package leg

import (
	"context"
	"errors"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/model"
	"backend-roadtrip/internal/store"

	"github.com/google/uuid"
)

// ErrNotFound signals that no leg connects a stop pair. Adjacent stops
// without a leg are a valid state.
var ErrNotFound = errors.New("leg not found")

// Index resolves legs between stops and guards pair uniqueness and
// stint membership of a leg's endpoints.
type Index struct {
	store    store.Store
	notifier change.Notifier
}

func NewIndex(s store.Store, notifier change.Notifier) *Index {
	return &Index{store: s, notifier: notifier}
}

// FindBetweenStops returns the leg for the ordered pair or ErrNotFound.
func (x *Index) FindBetweenStops(ctx context.Context, startStopID, endStopID string) (model.Leg, error) {
	l, err := x.store.FindLegByStops(ctx, startStopID, endStopID)
	if apperr.Is(err, apperr.KindNotFound) {
		return model.Leg{}, ErrNotFound
	}
	if err != nil {
		return model.Leg{}, err
	}
	return l, nil
}

func (x *Index) FindAllByStint(ctx context.Context, stintID string) ([]model.Leg, error) {
	if _, err := x.store.GetStint(ctx, stintID); err != nil {
		return nil, err
	}
	return x.store.ListLegsByStint(ctx, stintID)
}

// Create stores a new leg. Both stops must belong to leg.StintID and the
// ordered pair must be free. A zero SequenceNumber takes the start stop's.
func (x *Index) Create(ctx context.Context, input model.Leg) (model.Leg, error) {
	if input.StartStopID == "" || input.EndStopID == "" || input.StintID == "" {
		return model.Leg{}, apperr.Validation("stint_id, start_stop_id and end_stop_id required")
	}
	if input.StartStopID == input.EndStopID {
		return model.Leg{}, apperr.Validation("leg cannot start and end at stop %s", input.StartStopID)
	}
	if input.Distance < 0 || input.EstimatedTravelTime < 0 {
		return model.Leg{}, apperr.Validation("distance and estimated_travel_time must not be negative")
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	var tripID string
	err := x.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockStints(ctx, input.StintID); err != nil {
			return err
		}
		stint, err := tx.GetStint(ctx, input.StintID)
		if err != nil {
			return err
		}
		tripID = stint.TripID
		start, err := memberStop(ctx, tx, input.StintID, input.StartStopID)
		if err != nil {
			return err
		}
		if _, err := memberStop(ctx, tx, input.StintID, input.EndStopID); err != nil {
			return err
		}

		_, err = tx.FindLegByStops(ctx, input.StartStopID, input.EndStopID)
		switch {
		case err == nil:
			return apperr.Conflict("leg between %s and %s already exists", input.StartStopID, input.EndStopID)
		case !apperr.Is(err, apperr.KindNotFound):
			return err
		}

		if input.SequenceNumber == 0 {
			input.SequenceNumber = start.SequenceNumber
		}
		return tx.SaveLeg(ctx, input)
	})
	if err != nil {
		return model.Leg{}, err
	}
	x.notify(ctx, change.LegCreated, tripID, input)
	return input, nil
}

func (x *Index) Delete(ctx context.Context, legID string) (model.Leg, error) {
	var (
		deleted model.Leg
		tripID  string
	)
	err := x.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		l, err := tx.GetLeg(ctx, legID)
		if err != nil {
			return err
		}
		stint, err := tx.GetStint(ctx, l.StintID)
		if err != nil {
			return err
		}
		deleted, tripID = l, stint.TripID
		return tx.DeleteLeg(ctx, legID)
	})
	if err != nil {
		return model.Leg{}, err
	}
	x.notify(ctx, change.LegDeleted, tripID, deleted)
	return deleted, nil
}

func (x *Index) notify(ctx context.Context, kind change.Kind, tripID string, l model.Leg) {
	if x.notifier == nil {
		return
	}
	_ = x.notifier.Notify(ctx, change.Change{
		Kind:     kind,
		TripIDs:  []string{tripID},
		StintIDs: []string{l.StintID},
		EntityID: l.ID,
	})
}

func memberStop(ctx context.Context, tx store.EntityStore, stintID, stopID string) (model.Stop, error) {
	stop, err := tx.GetStop(ctx, stopID)
	if apperr.Is(err, apperr.KindNotFound) {
		return model.Stop{}, apperr.Validation("stop %s does not exist", stopID)
	}
	if err != nil {
		return model.Stop{}, err
	}
	if stop.StintID != stintID {
		return model.Stop{}, apperr.Validation("stop %s belongs to stint %s, not %s", stopID, stop.StintID, stintID)
	}
	return stop, nil
}

// PairIndex looks up already-fetched legs by ordered stop pair.
type PairIndex map[[2]string]model.Leg

func NewPairIndex(legs []model.Leg) PairIndex {
	idx := make(PairIndex, len(legs))
	for _, l := range legs {
		idx[[2]string{l.StartStopID, l.EndStopID}] = l
	}
	return idx
}

func (p PairIndex) Between(startStopID, endStopID string) (model.Leg, bool) {
	l, ok := p[[2]string{startStopID, endStopID}]
	return l, ok
}
