package sequence

import (
	"sort"
	"strings"

	"backend-roadtrip/internal/apperr"
)

type StopPosition struct {
	StopID         string `json:"stop_id"`
	SequenceNumber int    `json:"sequence_number"`
}

type StintPosition struct {
	StintID        string `json:"stint_id"`
	SequenceNumber int    `json:"sequence_number"`
}

type position struct {
	id  string
	seq int
}

// validatePermutation checks that order names exactly the ids in current,
// once each, and assigns them distinct numbers in 1..len(current).
// Nothing is coerced: the first problem found is reported.
func validatePermutation(entity string, current []string, order []position) error {
	members := make(map[string]bool, len(current))
	for _, id := range current {
		members[id] = true
	}
	n := len(current)

	seenID := make(map[string]bool, len(order))
	seenSeq := make(map[int]string, len(order))
	for _, p := range order {
		if p.id == "" {
			return apperr.Validation("%s id required", entity)
		}
		if seenID[p.id] {
			return apperr.Validation("duplicate %s id %s", entity, p.id)
		}
		seenID[p.id] = true
		if !members[p.id] {
			return apperr.Validation("%s %s does not belong to this parent", entity, p.id)
		}
		if p.seq < 1 || p.seq > n {
			return apperr.Validation("sequence number %d for %s %s out of range 1..%d", p.seq, entity, p.id, n)
		}
		if other, ok := seenSeq[p.seq]; ok {
			return apperr.Validation("sequence number %d assigned to both %s and %s", p.seq, other, p.id)
		}
		seenSeq[p.seq] = p.id
	}

	var missing []string
	for _, id := range current {
		if !seenID[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperr.Validation("incomplete %s order, missing %s", entity, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateStopOrder reports whether order is a complete permutation of
// stopIDs.
func ValidateStopOrder(stopIDs []string, order []StopPosition) error {
	ps := make([]position, len(order))
	for i, p := range order {
		ps[i] = position{id: p.StopID, seq: p.SequenceNumber}
	}
	return validatePermutation("stop", stopIDs, ps)
}

func ValidateStintOrder(stintIDs []string, order []StintPosition) error {
	ps := make([]position, len(order))
	for i, p := range order {
		ps[i] = position{id: p.StintID, seq: p.SequenceNumber}
	}
	return validatePermutation("stint", stintIDs, ps)
}

// CheckContiguous reports whether seqs is exactly 1..len(seqs) in order.
func CheckContiguous(seqs []int) bool {
	for i, s := range seqs {
		if s != i+1 {
			return false
		}
	}
	return true
}

// insertPosition clamps a requested 1-based slot into 1..n+1. Zero means
// append.
func insertPosition(requested, n int) int {
	switch {
	case requested == 0 || requested > n+1:
		return n + 1
	case requested < 1:
		return 1
	}
	return requested
}

func insertAt[T any](items []T, item T, pos int) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:pos-1]...)
	out = append(out, item)
	return append(out, items[pos-1:]...)
}

func removeWhere[T any](items []T, match func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, it := range items {
		if match(it) {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}

// renumber assigns 1..N in slice order and returns the indexes whose
// number changed.
func renumber[T any](items []T, seq func(*T) *int) []int {
	var changed []int
	for i := range items {
		p := seq(&items[i])
		if *p != i+1 {
			*p = i + 1
			changed = append(changed, i)
		}
	}
	return changed
}
