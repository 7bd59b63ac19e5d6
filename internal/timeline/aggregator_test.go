package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stintModel(seq int, first, last string, start, end *time.Time, dist float64, dur int) StintTimelineModel {
	return StintTimelineModel{
		StintID:           "stint-" + first + last,
		SequenceNumber:    seq,
		Distance:          dist,
		EstimatedDuration: dur,
		StartTime:         start,
		EndTime:           end,
		Timeline:          []Event{},
		firstLocationID:   first,
		lastLocationID:    last,
	}
}

func TestAggregateTripTotalsAndDates(t *testing.T) {
	out := AggregateTrip(TripInfo{ID: "trip-1", Title: "Utah", Description: "loop"}, []StintTimelineModel{
		stintModel(2, "moab", "sle", at(9, 0), at(17, 0), 250, 400),
		stintModel(1, "den", "moab", at(8, 0), at(18, 0), 350, 500),
	}, 0)

	assert.Equal(t, "trip-1", out.TripID)
	assert.Equal(t, "Utah", out.Title)
	assert.Equal(t, 600.0, out.TotalDistance)
	assert.Equal(t, 900, out.TotalDuration)
	require.Len(t, out.Stints, 2)
	assert.Equal(t, 1, out.Stints[0].SequenceNumber)
	assert.Equal(t, *at(8, 0), *out.StartDate)
	assert.Equal(t, *at(17, 0), *out.EndDate)
	assert.False(t, out.Stints[0].ContinuesFromPrevious)
}

func TestAggregateTripContinuity(t *testing.T) {
	cases := []struct {
		name      string
		second    StintTimelineModel
		tolerance time.Duration
		want      bool
	}{
		{"same place untimed", stintModel(2, "moab", "x", nil, nil, 0, 0), 0, true},
		{"different place", stintModel(2, "vail", "x", nil, nil, 0, 0), 0, false},
		{"gap within tolerance", stintModel(2, "moab", "x", at(18, 30), nil, 0, 0), time.Hour, true},
		{"gap beyond tolerance", stintModel(2, "moab", "x", at(20, 0), nil, 0, 0), time.Hour, false},
		{"exact handoff", stintModel(2, "moab", "x", at(18, 0), nil, 0, 0), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := stintModel(1, "den", "moab", at(8, 0), at(18, 0), 0, 0)
			out := AggregateTrip(TripInfo{ID: "trip-1"}, []StintTimelineModel{first, tc.second}, tc.tolerance)
			assert.Equal(t, tc.want, out.Stints[1].ContinuesFromPrevious)
		})
	}

	t.Run("empty previous location never continues", func(t *testing.T) {
		out := AggregateTrip(TripInfo{ID: "trip-1"}, []StintTimelineModel{
			stintModel(1, "", "", nil, nil, 0, 0),
			stintModel(2, "", "", nil, nil, 0, 0),
		}, 0)
		assert.False(t, out.Stints[1].ContinuesFromPrevious)
	})
}

func TestAggregateTripEmpty(t *testing.T) {
	out := AggregateTrip(TripInfo{ID: "trip-1"}, nil, 0)
	assert.NotNil(t, out.Stints)
	assert.Nil(t, out.StartDate)
	assert.Nil(t, out.EndDate)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"stints":[]`)
}

func TestTripTimelineJSONRoundTrip(t *testing.T) {
	in, err := AssembleStint(threeStopInput())
	require.NoError(t, err)
	trip := AggregateTrip(TripInfo{ID: "trip-1", Title: "t"}, []StintTimelineModel{in}, 0)

	body, err := json.Marshal(trip)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"departure"`)
	assert.Contains(t, string(body), `"estimatedDuration":240`)

	var decoded TripTimelineModel
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.Stints, 1)
	assert.Equal(t, kinds(trip.Stints[0].Timeline), kinds(decoded.Stints[0].Timeline))
	assert.Equal(t, "l12", decoded.Stints[0].Timeline[2].Data.(LegData).ID)
}
