package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"
)

// Memory is an in-process Store. Transactions are serialised and commit a
// copy of the state, so readers never see a half-applied unit of work.
type Memory struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	stints    map[string]model.Stint
	stops     map[string]model.Stop
	legs      map[string]model.Leg
	locations map[string]model.Location
}

func NewMemory() *Memory {
	return &Memory{state: &memState{
		stints:    map[string]model.Stint{},
		stops:     map[string]model.Stop{},
		legs:      map[string]model.Leg{},
		locations: map[string]model.Location{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		stints:    make(map[string]model.Stint, len(s.stints)),
		stops:     make(map[string]model.Stop, len(s.stops)),
		legs:      make(map[string]model.Leg, len(s.legs)),
		locations: make(map[string]model.Location, len(s.locations)),
	}
	for k, v := range s.stints {
		c.stints[k] = v
	}
	for k, v := range s.stops {
		c.stops[k] = v
	}
	for k, v := range s.legs {
		c.legs[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	return c
}

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, s EntityStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	work := m.state.clone()
	m.mu.RUnlock()

	if err := fn(ctx, memView{work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

func (m *Memory) view() memView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memView{m.state}
}

// PutLocation registers a named place.
func (m *Memory) PutLocation(loc model.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.locations[loc.ID] = loc
}

func (m *Memory) NameOf(_ context.Context, locationID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.state.locations[locationID]
	if !ok {
		return "", apperr.NotFound("location", locationID)
	}
	return loc.Name, nil
}

// Committed state is never mutated in place, so a snapshot taken under
// the read lock stays valid after it is released.

func (m *Memory) GetStint(ctx context.Context, id string) (model.Stint, error) {
	return m.view().GetStint(ctx, id)
}

func (m *Memory) GetStop(ctx context.Context, id string) (model.Stop, error) {
	return m.view().GetStop(ctx, id)
}

func (m *Memory) GetLeg(ctx context.Context, id string) (model.Leg, error) {
	return m.view().GetLeg(ctx, id)
}

func (m *Memory) FindLegByStops(ctx context.Context, startStopID, endStopID string) (model.Leg, error) {
	return m.view().FindLegByStops(ctx, startStopID, endStopID)
}

func (m *Memory) ListStintsByTrip(ctx context.Context, tripID string) ([]model.Stint, error) {
	return m.view().ListStintsByTrip(ctx, tripID)
}

func (m *Memory) ListStopsByStint(ctx context.Context, stintID string) ([]model.Stop, error) {
	return m.view().ListStopsByStint(ctx, stintID)
}

func (m *Memory) ListLegsByStint(ctx context.Context, stintID string) ([]model.Leg, error) {
	return m.view().ListLegsByStint(ctx, stintID)
}

func (m *Memory) SaveStint(ctx context.Context, s model.Stint) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.SaveStint(ctx, s) })
}

func (m *Memory) SaveStop(ctx context.Context, s model.Stop) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.SaveStop(ctx, s) })
}

func (m *Memory) SaveLeg(ctx context.Context, l model.Leg) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.SaveLeg(ctx, l) })
}

func (m *Memory) DeleteStint(ctx context.Context, id string) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.DeleteStint(ctx, id) })
}

func (m *Memory) DeleteStop(ctx context.Context, id string) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.DeleteStop(ctx, id) })
}

func (m *Memory) DeleteLeg(ctx context.Context, id string) error {
	return m.WithinTx(ctx, func(ctx context.Context, tx EntityStore) error { return tx.DeleteLeg(ctx, id) })
}

func (m *Memory) LockTrip(context.Context, string) error      { return nil }
func (m *Memory) LockStints(context.Context, ...string) error { return nil }

type memView struct {
	s *memState
}

func (v memView) GetStint(_ context.Context, id string) (model.Stint, error) {
	st, ok := v.s.stints[id]
	if !ok {
		return model.Stint{}, apperr.NotFound("stint", id)
	}
	return st, nil
}

func (v memView) GetStop(_ context.Context, id string) (model.Stop, error) {
	st, ok := v.s.stops[id]
	if !ok {
		return model.Stop{}, apperr.NotFound("stop", id)
	}
	return st, nil
}

func (v memView) GetLeg(_ context.Context, id string) (model.Leg, error) {
	l, ok := v.s.legs[id]
	if !ok {
		return model.Leg{}, apperr.NotFound("leg", id)
	}
	return l, nil
}

func (v memView) FindLegByStops(_ context.Context, startStopID, endStopID string) (model.Leg, error) {
	for _, l := range v.s.legs {
		if l.StartStopID == startStopID && l.EndStopID == endStopID {
			return l, nil
		}
	}
	return model.Leg{}, apperr.NotFound("leg", startStopID+"->"+endStopID)
}

func (v memView) ListStintsByTrip(_ context.Context, tripID string) ([]model.Stint, error) {
	var out []model.Stint
	for _, st := range v.s.stints {
		if st.TripID == tripID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v memView) ListStopsByStint(_ context.Context, stintID string) ([]model.Stop, error) {
	var out []model.Stop
	for _, st := range v.s.stops {
		if st.StintID == stintID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v memView) ListLegsByStint(_ context.Context, stintID string) ([]model.Leg, error) {
	var out []model.Leg
	for _, l := range v.s.legs {
		if l.StintID == stintID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v memView) SaveStint(_ context.Context, s model.Stint) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	v.s.stints[s.ID] = s
	return nil
}

func (v memView) SaveStop(_ context.Context, s model.Stop) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	v.s.stops[s.ID] = s
	return nil
}

func (v memView) SaveLeg(_ context.Context, l model.Leg) error {
	for _, other := range v.s.legs {
		if other.ID != l.ID && other.StartStopID == l.StartStopID && other.EndStopID == l.EndStopID {
			return apperr.Conflict("leg between %s and %s already exists", l.StartStopID, l.EndStopID)
		}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	v.s.legs[l.ID] = l
	return nil
}

func (v memView) DeleteStint(_ context.Context, id string) error {
	if _, ok := v.s.stints[id]; !ok {
		return apperr.NotFound("stint", id)
	}
	delete(v.s.stints, id)
	return nil
}

func (v memView) DeleteStop(_ context.Context, id string) error {
	if _, ok := v.s.stops[id]; !ok {
		return apperr.NotFound("stop", id)
	}
	delete(v.s.stops, id)
	return nil
}

func (v memView) DeleteLeg(_ context.Context, id string) error {
	if _, ok := v.s.legs[id]; !ok {
		return apperr.NotFound("leg", id)
	}
	delete(v.s.legs, id)
	return nil
}

func (v memView) LockTrip(context.Context, string) error      { return nil }
func (v memView) LockStints(context.Context, ...string) error { return nil }
