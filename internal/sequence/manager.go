// Package sequence owns every write to sequence_number. Stops within a
// stint and stints within a trip are kept numbered 1..N with no gaps, and
// every multi-row shift runs inside one store transaction.
package sequence

import (
	"context"
	"sort"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/model"
	"backend-roadtrip/internal/store"

	"github.com/google/uuid"
)

// Authorizer decides whether a requester may move a stop between stints
// of different trips.
type Authorizer interface {
	CanMoveAcrossTrips(ctx context.Context, requesterID, sourceStintID, targetStintID string) (bool, error)
}

// Observer is told about every operation outcome.
type Observer interface {
	ObserveOperation(op string, err error)
}

type Manager struct {
	store    store.Store
	auth     Authorizer
	notifier change.Notifier
	observer Observer
}

type Option func(*Manager)

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

func NewManager(s store.Store, auth Authorizer, notifier change.Notifier, opts ...Option) *Manager {
	m := &Manager{store: s, auth: auth, notifier: notifier}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type MoveRequest struct {
	RequesterID   string
	StopID        string
	TargetStintID string
	// SequenceNumber is the 1-based slot in the target stint; 0 appends.
	SequenceNumber int
}

type MoveResult struct {
	Stop         model.Stop `json:"stop"`
	FromStintID  string     `json:"from_stint_id"`
	CrossTrip    bool       `json:"cross_trip"`
	RemovedLegs  []string   `json:"removed_legs,omitempty"`
	SourceTripID string     `json:"source_trip_id"`
}

func stopSeq(s *model.Stop) *int   { return &s.SequenceNumber }
func stintSeq(s *model.Stint) *int { return &s.SequenceNumber }

// ReorderStops applies a complete target order to a stint's stops.
// Applying the same order twice is a no-op the second time.
func (m *Manager) ReorderStops(ctx context.Context, stintID string, order []StopPosition) (stops []model.Stop, err error) {
	defer func() { m.observe("reorder_stops", err) }()

	var (
		tripID  string
		changed int
	)
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockStints(ctx, stintID); err != nil {
			return err
		}
		stint, err := tx.GetStint(ctx, stintID)
		if err != nil {
			return err
		}
		tripID = stint.TripID

		current, err := tx.ListStopsByStint(ctx, stintID)
		if err != nil {
			return err
		}
		ids := make([]string, len(current))
		for i, s := range current {
			ids[i] = s.ID
		}
		if err := ValidateStopOrder(ids, order); err != nil {
			return err
		}

		target := make(map[string]int, len(order))
		for _, p := range order {
			target[p.StopID] = p.SequenceNumber
		}
		for i := range current {
			want := target[current[i].ID]
			if current[i].SequenceNumber == want {
				continue
			}
			current[i].SequenceNumber = want
			if err := tx.SaveStop(ctx, current[i]); err != nil {
				return err
			}
			changed++
		}
		sort.Slice(current, func(i, j int) bool { return current[i].SequenceNumber < current[j].SequenceNumber })
		stops = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed > 0 {
		m.notify(ctx, change.Change{Kind: change.StopsReordered, TripIDs: []string{tripID}, StintIDs: []string{stintID}, EntityID: stintID})
	}
	return stops, nil
}

// ReorderStints applies a complete target order to a trip's stints.
func (m *Manager) ReorderStints(ctx context.Context, tripID string, order []StintPosition) (stints []model.Stint, err error) {
	defer func() { m.observe("reorder_stints", err) }()

	changed := 0
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockTrip(ctx, tripID); err != nil {
			return err
		}
		current, err := tx.ListStintsByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		ids := make([]string, len(current))
		for i, s := range current {
			ids[i] = s.ID
		}
		if err := ValidateStintOrder(ids, order); err != nil {
			return err
		}

		target := make(map[string]int, len(order))
		for _, p := range order {
			target[p.StintID] = p.SequenceNumber
		}
		for i := range current {
			want := target[current[i].ID]
			if current[i].SequenceNumber == want {
				continue
			}
			current[i].SequenceNumber = want
			if err := tx.SaveStint(ctx, current[i]); err != nil {
				return err
			}
			changed++
		}
		sort.Slice(current, func(i, j int) bool { return current[i].SequenceNumber < current[j].SequenceNumber })
		stints = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed > 0 {
		m.notify(ctx, change.Change{Kind: change.StintsReordered, TripIDs: []string{tripID}, EntityID: tripID})
	}
	return stints, nil
}

// MoveStop detaches a stop from its stint, closing the gap, and inserts it
// into the target stint at the requested slot. Moving into a stint of
// another trip requires the Authorizer's consent.
func (m *Manager) MoveStop(ctx context.Context, req MoveRequest) (res MoveResult, err error) {
	defer func() { m.observe("move_stop", err) }()

	stop, err := m.store.GetStop(ctx, req.StopID)
	if err != nil {
		return MoveResult{}, err
	}
	source, err := m.store.GetStint(ctx, stop.StintID)
	if err != nil {
		return MoveResult{}, err
	}
	target, err := m.store.GetStint(ctx, req.TargetStintID)
	if err != nil {
		return MoveResult{}, err
	}
	crossTrip := source.TripID != target.TripID
	if crossTrip {
		allowed := false
		if m.auth != nil {
			allowed, err = m.auth.CanMoveAcrossTrips(ctx, req.RequesterID, source.ID, target.ID)
			if err != nil {
				return MoveResult{}, err
			}
		}
		if !allowed {
			return MoveResult{}, apperr.Forbidden("moving stop %s from trip %s to trip %s is not permitted", stop.ID, source.TripID, target.TripID)
		}
	}

	res = MoveResult{FromStintID: source.ID, CrossTrip: crossTrip, SourceTripID: source.TripID}
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockStints(ctx, source.ID, target.ID); err != nil {
			return err
		}
		locked, err := tx.GetStop(ctx, stop.ID)
		if err != nil {
			return err
		}
		if locked.StintID != source.ID {
			return apperr.Inconsistent("stop %s changed stint during move", stop.ID)
		}

		srcStops, err := tx.ListStopsByStint(ctx, source.ID)
		if err != nil {
			return err
		}
		remaining, found := removeWhere(srcStops, func(s model.Stop) bool { return s.ID == locked.ID })
		if !found {
			return apperr.Inconsistent("stop %s missing from stint %s", locked.ID, source.ID)
		}

		if source.ID != target.ID {
			for _, i := range renumber(remaining, stopSeq) {
				if err := tx.SaveStop(ctx, remaining[i]); err != nil {
					return err
				}
			}
			// Legs touching the stop would now span two stints.
			legs, err := tx.ListLegsByStint(ctx, source.ID)
			if err != nil {
				return err
			}
			for _, l := range legs {
				if !l.Touches(locked.ID) {
					continue
				}
				if err := tx.DeleteLeg(ctx, l.ID); err != nil {
					return err
				}
				res.RemovedLegs = append(res.RemovedLegs, l.ID)
			}
			if remaining, err = tx.ListStopsByStint(ctx, target.ID); err != nil {
				return err
			}
		}

		locked.StintID = target.ID
		locked.TripID = target.TripID
		pos := insertPosition(req.SequenceNumber, len(remaining))
		placed := insertAt(remaining, locked, pos)
		changed := renumber(placed, stopSeq)
		savedMoved := false
		for _, i := range changed {
			if err := tx.SaveStop(ctx, placed[i]); err != nil {
				return err
			}
			if placed[i].ID == locked.ID {
				savedMoved = true
			}
		}
		if !savedMoved {
			if err := tx.SaveStop(ctx, placed[pos-1]); err != nil {
				return err
			}
		}
		res.Stop = placed[pos-1]
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}

	trips := []string{source.TripID}
	if crossTrip {
		trips = append(trips, target.TripID)
	}
	stints := []string{source.ID}
	if source.ID != target.ID {
		stints = append(stints, target.ID)
	}
	m.notify(ctx, change.Change{Kind: change.StopMoved, TripIDs: trips, StintIDs: stints, EntityID: stop.ID})
	return res, nil
}

// InsertStop creates stop in stintID at the desired slot, shifting later
// stops up by one. A zero slot appends.
func (m *Manager) InsertStop(ctx context.Context, stintID string, desired int, stop model.Stop) (created model.Stop, err error) {
	defer func() { m.observe("insert_stop", err) }()

	if stop.StopType == "" {
		stop.StopType = model.StopAttraction
	}
	if !stop.StopType.Valid() {
		return model.Stop{}, apperr.Validation("unknown stop_type %q", stop.StopType)
	}
	if stop.Duration < 0 {
		return model.Stop{}, apperr.Validation("duration must not be negative")
	}
	if stop.ArrivalTime != nil && stop.DepartureTime != nil && stop.DepartureTime.Before(*stop.ArrivalTime) {
		return model.Stop{}, apperr.Validation("departure_time before arrival_time")
	}
	if stop.ID == "" {
		stop.ID = uuid.NewString()
	}
	stop.SequenceNumber = 0

	var tripID string
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockStints(ctx, stintID); err != nil {
			return err
		}
		stint, err := tx.GetStint(ctx, stintID)
		if err != nil {
			return err
		}
		tripID = stint.TripID

		current, err := tx.ListStopsByStint(ctx, stintID)
		if err != nil {
			return err
		}
		stop.StintID = stint.ID
		stop.TripID = stint.TripID
		pos := insertPosition(desired, len(current))
		placed := insertAt(current, stop, pos)
		for _, i := range renumber(placed, stopSeq) {
			if err := tx.SaveStop(ctx, placed[i]); err != nil {
				return err
			}
		}
		created = placed[pos-1]
		return nil
	})
	if err != nil {
		return model.Stop{}, err
	}
	m.notify(ctx, change.Change{Kind: change.StopInserted, TripIDs: []string{tripID}, StintIDs: []string{stintID}, EntityID: created.ID})
	return created, nil
}

// InsertStint creates stint in tripID at the desired slot.
func (m *Manager) InsertStint(ctx context.Context, tripID string, desired int, stint model.Stint) (created model.Stint, err error) {
	defer func() { m.observe("insert_stint", err) }()

	if stint.Distance < 0 || stint.EstimatedDuration < 0 {
		return model.Stint{}, apperr.Validation("distance and estimated_duration must not be negative")
	}
	if stint.ID == "" {
		stint.ID = uuid.NewString()
	}
	stint.SequenceNumber = 0

	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		if err := tx.LockTrip(ctx, tripID); err != nil {
			return err
		}
		current, err := tx.ListStintsByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		stint.TripID = tripID
		pos := insertPosition(desired, len(current))
		placed := insertAt(current, stint, pos)
		for _, i := range renumber(placed, stintSeq) {
			if err := tx.SaveStint(ctx, placed[i]); err != nil {
				return err
			}
		}
		created = placed[pos-1]
		return nil
	})
	if err != nil {
		return model.Stint{}, err
	}
	m.notify(ctx, change.Change{Kind: change.StintInserted, TripIDs: []string{tripID}, StintIDs: []string{created.ID}, EntityID: created.ID})
	return created, nil
}

// RemoveStop deletes a stop and the legs touching it, shifting later stops
// down by one.
func (m *Manager) RemoveStop(ctx context.Context, stopID string) (err error) {
	defer func() { m.observe("remove_stop", err) }()

	var stop model.Stop
	var tripID string
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		s, err := tx.GetStop(ctx, stopID)
		if err != nil {
			return err
		}
		if err := tx.LockStints(ctx, s.StintID); err != nil {
			return err
		}
		locked, err := tx.GetStop(ctx, stopID)
		if err != nil {
			return err
		}
		if locked.StintID != s.StintID {
			return apperr.Inconsistent("stop %s changed stint during remove", stopID)
		}
		s = locked
		stint, err := tx.GetStint(ctx, s.StintID)
		if err != nil {
			return err
		}
		stop, tripID = s, stint.TripID

		legs, err := tx.ListLegsByStint(ctx, s.StintID)
		if err != nil {
			return err
		}
		for _, l := range legs {
			if l.Touches(s.ID) {
				if err := tx.DeleteLeg(ctx, l.ID); err != nil {
					return err
				}
			}
		}

		current, err := tx.ListStopsByStint(ctx, s.StintID)
		if err != nil {
			return err
		}
		remaining, found := removeWhere(current, func(o model.Stop) bool { return o.ID == s.ID })
		if !found {
			return apperr.Inconsistent("stop %s not listed in stint %s", s.ID, s.StintID)
		}
		if err := tx.DeleteStop(ctx, s.ID); err != nil {
			return err
		}
		for _, i := range renumber(remaining, stopSeq) {
			if err := tx.SaveStop(ctx, remaining[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.notify(ctx, change.Change{Kind: change.StopRemoved, TripIDs: []string{tripID}, StintIDs: []string{stop.StintID}, EntityID: stopID})
	return nil
}

// RemoveStint deletes a stint with its stops and legs and closes the gap
// in the trip's stint numbering.
func (m *Manager) RemoveStint(ctx context.Context, stintID string) (err error) {
	defer func() { m.observe("remove_stint", err) }()

	var tripID string
	err = m.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
		stint, err := tx.GetStint(ctx, stintID)
		if err != nil {
			return err
		}
		tripID = stint.TripID
		if err := tx.LockTrip(ctx, stint.TripID); err != nil {
			return err
		}
		if err := tx.LockStints(ctx, stint.ID); err != nil {
			return err
		}

		legs, err := tx.ListLegsByStint(ctx, stint.ID)
		if err != nil {
			return err
		}
		for _, l := range legs {
			if err := tx.DeleteLeg(ctx, l.ID); err != nil {
				return err
			}
		}
		stops, err := tx.ListStopsByStint(ctx, stint.ID)
		if err != nil {
			return err
		}
		for _, s := range stops {
			if err := tx.DeleteStop(ctx, s.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteStint(ctx, stint.ID); err != nil {
			return err
		}

		remaining, err := tx.ListStintsByTrip(ctx, stint.TripID)
		if err != nil {
			return err
		}
		for _, i := range renumber(remaining, stintSeq) {
			if err := tx.SaveStint(ctx, remaining[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.notify(ctx, change.Change{Kind: change.StintRemoved, TripIDs: []string{tripID}, StintIDs: []string{stintID}, EntityID: stintID})
	return nil
}

func (m *Manager) notify(ctx context.Context, c change.Change) {
	if m.notifier != nil {
		_ = m.notifier.Notify(ctx, c)
	}
}

func (m *Manager) observe(op string, err error) {
	if m.observer != nil {
		m.observer.ObserveOperation(op, err)
	}
}
