package timeline

import (
	"sort"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/leg"
	"backend-roadtrip/internal/model"
	"backend-roadtrip/internal/sequence"
)

// StintInput is everything AssembleStint needs, already fetched.
type StintInput struct {
	Stint             model.Stint
	Stops             []model.Stop
	Legs              []model.Leg
	StartLocationName string
	EndLocationName   string
}

// AssembleStint merges a stint's stops and legs into one ordered timeline.
//
// The merge is driven by stop order: a departure event comes first, then
// each stop, with the leg between a stop and the next one slotted in
// between. Leg sequence numbers are display data and never affect
// interleaving.
//
// Times propagate forward from the stint's departure time. A stop's
// explicit arrival_time or departure_time overrides the computed value and
// becomes the clock for everything after it. Without any anchor all times
// stay nil.
func AssembleStint(in StintInput) (StintTimelineModel, error) {
	stops := append([]model.Stop(nil), in.Stops...)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].SequenceNumber < stops[j].SequenceNumber })

	seqs := make([]int, len(stops))
	for i, s := range stops {
		seqs[i] = s.SequenceNumber
	}
	if !sequence.CheckContiguous(seqs) {
		return StintTimelineModel{}, apperr.Inconsistent("stint %s stop numbering %v is not 1..%d", in.Stint.ID, seqs, len(stops))
	}

	out := StintTimelineModel{
		StintID:        in.Stint.ID,
		Name:           in.Stint.Name,
		SequenceNumber: in.Stint.SequenceNumber,
		Timeline:       make([]Event, 0, 2*len(stops)),
	}
	if in.StartLocationName != "" {
		out.StartLocationName = strPtr(in.StartLocationName)
	}
	if in.EndLocationName != "" {
		out.EndLocationName = strPtr(in.EndLocationName)
	}
	if len(stops) > 0 {
		out.firstLocationID = stops[0].LocationID
		out.lastLocationID = stops[len(stops)-1].LocationID
	}

	clock := copyTime(in.Stint.DepartureTime)
	departureName := in.StartLocationName
	if departureName == "" && len(stops) > 0 {
		departureName = stops[0].Name
	}
	out.Timeline = append(out.Timeline, Event{
		Type:           EventDeparture,
		SequenceNumber: 0,
		Data: DepartureData{
			Name:       departureName,
			LocationID: in.Stint.StartLocationID,
			StartTime:  clock,
			EndTime:    copyTime(clock),
		},
	})

	pairs := leg.NewPairIndex(in.Legs)
	for i, s := range stops {
		start := clock
		if s.ArrivalTime != nil {
			start = copyTime(s.ArrivalTime)
		}
		var end *time.Time
		switch {
		case s.DepartureTime != nil:
			end = copyTime(s.DepartureTime)
		case start != nil:
			end = addMinutes(start, s.Duration)
		}
		out.Timeline = append(out.Timeline, Event{
			Type:           EventStop,
			SequenceNumber: s.SequenceNumber,
			Data:           StopData{Stop: s, StartTime: start, EndTime: end},
		})
		out.EstimatedDuration += s.Duration
		clock = end

		if i == len(stops)-1 {
			break
		}
		l, ok := pairs.Between(s.ID, stops[i+1].ID)
		if !ok {
			continue
		}
		legStart := copyTime(clock)
		legEnd := addMinutes(legStart, l.EstimatedTravelTime)
		out.Timeline = append(out.Timeline, Event{
			Type:           EventLeg,
			SequenceNumber: l.SequenceNumber,
			Data:           LegData{Leg: l, StartTime: legStart, EndTime: legEnd},
		})
		out.Distance += l.Distance
		out.EstimatedDuration += l.EstimatedTravelTime
		clock = legEnd
	}

	for _, e := range out.Timeline {
		if start, _ := e.Data.Window(); start != nil {
			out.StartTime = copyTime(start)
			break
		}
	}
	for i := len(out.Timeline) - 1; i >= 0; i-- {
		if _, end := out.Timeline[i].Data.Window(); end != nil {
			out.EndTime = copyTime(end)
			break
		}
	}
	return out, nil
}

func addMinutes(t *time.Time, minutes int) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Add(time.Duration(minutes) * time.Minute)
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func strPtr(s string) *string { return &s }
