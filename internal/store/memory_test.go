package store

import (
	"context"
	"errors"
	"testing"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"
)

func TestMemoryListsOrderedBySequence(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SaveStop(ctx, model.Stop{ID: "c", StintID: "s1", SequenceNumber: 3})
	_ = m.SaveStop(ctx, model.Stop{ID: "a", StintID: "s1", SequenceNumber: 1})
	_ = m.SaveStop(ctx, model.Stop{ID: "b", StintID: "s1", SequenceNumber: 2})
	_ = m.SaveStop(ctx, model.Stop{ID: "x", StintID: "s2", SequenceNumber: 1})

	stops, err := m.ListStopsByStint(ctx, "s1")
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != 3 || stops[0].ID != "a" || stops[1].ID != "b" || stops[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", stops)
	}
}

func TestMemoryWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SaveStop(ctx, model.Stop{ID: "a", StintID: "s1", SequenceNumber: 1})

	errAbort := errors.New("abort")
	err := m.WithinTx(ctx, func(ctx context.Context, s EntityStore) error {
		if err := s.SaveStop(ctx, model.Stop{ID: "a", StintID: "s1", SequenceNumber: 2}); err != nil {
			return err
		}
		if err := s.DeleteStop(ctx, "a"); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}

	stop, err := m.GetStop(ctx, "a")
	if err != nil {
		t.Fatalf("stop should survive rollback: %v", err)
	}
	if stop.SequenceNumber != 1 {
		t.Fatalf("expected original sequence, got %d", stop.SequenceNumber)
	}
}

func TestMemoryWithinTxHonoursCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	err := m.WithinTx(ctx, func(ctx context.Context, s EntityStore) error {
		cancel()
		return s.SaveStop(ctx, model.Stop{ID: "a", StintID: "s1", SequenceNumber: 1})
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if _, err := m.GetStop(context.Background(), "a"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("cancelled unit must not commit")
	}
}

func TestMemoryLegPairUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.SaveLeg(ctx, model.Leg{ID: "l1", StintID: "s1", StartStopID: "a", EndStopID: "b"}); err != nil {
		t.Fatalf("save leg: %v", err)
	}
	// updating the same leg is fine
	if err := m.SaveLeg(ctx, model.Leg{ID: "l1", StintID: "s1", StartStopID: "a", EndStopID: "b", Distance: 5}); err != nil {
		t.Fatalf("update leg: %v", err)
	}
	err := m.SaveLeg(ctx, model.Leg{ID: "l2", StintID: "s1", StartStopID: "a", EndStopID: "b"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// reverse direction is a different ordered pair
	if err := m.SaveLeg(ctx, model.Leg{ID: "l3", StintID: "s1", StartStopID: "b", EndStopID: "a"}); err != nil {
		t.Fatalf("reverse leg: %v", err)
	}

	found, err := m.FindLegByStops(ctx, "a", "b")
	if err != nil || found.ID != "l1" {
		t.Fatalf("find leg: %v %+v", err, found)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.GetStint(ctx, "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found stint")
	}
	if _, err := m.GetLeg(ctx, "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found leg")
	}
	if err := m.DeleteStop(ctx, "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found delete")
	}
	if _, err := m.NameOf(ctx, "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found location")
	}

	m.PutLocation(model.Location{ID: "loc-1", Name: "Moab"})
	name, err := m.NameOf(ctx, "loc-1")
	if err != nil || name != "Moab" {
		t.Fatalf("name of: %v %q", err, name)
	}
}
