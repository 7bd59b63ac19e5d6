package timeline

import (
	"testing"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) *time.Time {
	t := time.Date(2024, 6, 1, hh, mm, 0, 0, time.UTC)
	return &t
}

func kinds(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func threeStopInput() StintInput {
	return StintInput{
		Stint: model.Stint{ID: "stint-1", Name: "Day one", SequenceNumber: 1},
		Stops: []model.Stop{
			{ID: "s3", StintID: "stint-1", SequenceNumber: 3, Name: "Moab", Duration: 30},
			{ID: "s1", StintID: "stint-1", SequenceNumber: 1, Name: "Denver"},
			{ID: "s2", StintID: "stint-1", SequenceNumber: 2, Name: "Vail", Duration: 60},
		},
		Legs: []model.Leg{
			// Leg numbering disagrees with stop order on purpose.
			{ID: "l23", StartStopID: "s2", EndStopID: "s3", SequenceNumber: 1, Distance: 200, EstimatedTravelTime: 120},
			{ID: "l12", StartStopID: "s1", EndStopID: "s2", SequenceNumber: 7, Distance: 100, EstimatedTravelTime: 30},
		},
	}
}

func TestAssembleStintOrdering(t *testing.T) {
	out, err := AssembleStint(threeStopInput())
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventDeparture, EventStop, EventLeg, EventStop, EventLeg, EventStop}, kinds(out.Timeline))
	assert.Equal(t, "s1", out.Timeline[1].Data.(StopData).ID)
	assert.Equal(t, "l12", out.Timeline[2].Data.(LegData).ID)
	assert.Equal(t, "s2", out.Timeline[3].Data.(StopData).ID)
	assert.Equal(t, "l23", out.Timeline[4].Data.(LegData).ID)
	assert.Equal(t, "s3", out.Timeline[5].Data.(StopData).ID)

	assert.Equal(t, 300.0, out.Distance)
	assert.Equal(t, 0+30+60+120+30, out.EstimatedDuration)
	assert.Equal(t, "Denver", out.Timeline[0].Data.(DepartureData).Name)
}

func TestAssembleStintWithoutAnchorLeavesTimesAbsent(t *testing.T) {
	out, err := AssembleStint(threeStopInput())
	require.NoError(t, err)

	assert.Nil(t, out.StartTime)
	assert.Nil(t, out.EndTime)
	for _, e := range out.Timeline {
		start, end := e.Data.Window()
		assert.Nil(t, start, "%s %d", e.Type, e.SequenceNumber)
		assert.Nil(t, end, "%s %d", e.Type, e.SequenceNumber)
	}
}

func TestAssembleStintPropagatesFromDeparture(t *testing.T) {
	base := StintInput{
		Stint: model.Stint{ID: "stint-1", SequenceNumber: 1, DepartureTime: at(9, 0)},
		Stops: []model.Stop{
			{ID: "s1", SequenceNumber: 1},
			{ID: "s2", SequenceNumber: 2, Duration: 60},
		},
		Legs: []model.Leg{{ID: "l12", StartStopID: "s1", EndStopID: "s2", EstimatedTravelTime: 30}},
	}

	check := func(t *testing.T, in StintInput) {
		out, err := AssembleStint(in)
		require.NoError(t, err)
		require.Len(t, out.Timeline, 4)

		stop2 := out.Timeline[3].Data.(StopData)
		assert.Equal(t, *at(9, 30), *stop2.StartTime)
		assert.Equal(t, *at(10, 30), *stop2.EndTime)

		leg := out.Timeline[2].Data.(LegData)
		assert.Equal(t, *at(9, 0), *leg.StartTime)
		assert.Equal(t, *at(9, 30), *leg.EndTime)

		assert.Equal(t, 90, out.EstimatedDuration)
		assert.Equal(t, *at(10, 30), *out.EndTime)
	}

	t.Run("stint departure time", func(t *testing.T) {
		check(t, base)
	})

	t.Run("first stop departure time", func(t *testing.T) {
		in := base
		in.Stint.DepartureTime = nil
		in.Stops = []model.Stop{
			{ID: "s1", SequenceNumber: 1, DepartureTime: at(9, 0)},
			{ID: "s2", SequenceNumber: 2, Duration: 60},
		}
		check(t, in)
	})
}

func TestAssembleStintArrivalOverrideResetsClock(t *testing.T) {
	out, err := AssembleStint(StintInput{
		Stint: model.Stint{ID: "stint-1", DepartureTime: at(8, 0)},
		Stops: []model.Stop{
			{ID: "s1", SequenceNumber: 1, Duration: 15},
			{ID: "s2", SequenceNumber: 2, Duration: 45, ArrivalTime: at(12, 0)},
			{ID: "s3", SequenceNumber: 3, Duration: 10},
		},
		Legs: []model.Leg{
			{ID: "l12", StartStopID: "s1", EndStopID: "s2", EstimatedTravelTime: 60},
			{ID: "l23", StartStopID: "s2", EndStopID: "s3", EstimatedTravelTime: 20},
		},
	})
	require.NoError(t, err)

	s2 := out.Timeline[3].Data.(StopData)
	assert.Equal(t, *at(12, 0), *s2.StartTime)
	assert.Equal(t, *at(12, 45), *s2.EndTime)

	s3 := out.Timeline[5].Data.(StopData)
	assert.Equal(t, *at(13, 5), *s3.StartTime)
	assert.Equal(t, *at(13, 15), *s3.EndTime)

	assert.Equal(t, *at(8, 0), *out.StartTime)
}

func TestAssembleStintMissingLegCarriesClock(t *testing.T) {
	out, err := AssembleStint(StintInput{
		Stint: model.Stint{ID: "stint-1", DepartureTime: at(9, 0)},
		Stops: []model.Stop{
			{ID: "s1", SequenceNumber: 1, Duration: 30},
			{ID: "s2", SequenceNumber: 2, Duration: 30},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventDeparture, EventStop, EventStop}, kinds(out.Timeline))
	s2 := out.Timeline[2].Data.(StopData)
	assert.Equal(t, *at(9, 30), *s2.StartTime)
}

func TestAssembleStintEmpty(t *testing.T) {
	out, err := AssembleStint(StintInput{Stint: model.Stint{ID: "stint-1", DepartureTime: at(9, 0)}})
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventDeparture}, kinds(out.Timeline))
	assert.Equal(t, *at(9, 0), *out.StartTime)
	assert.Zero(t, out.EstimatedDuration)
}

func TestAssembleStintRejectsBrokenNumbering(t *testing.T) {
	_, err := AssembleStint(StintInput{
		Stint: model.Stint{ID: "stint-1"},
		Stops: []model.Stop{{ID: "s1", SequenceNumber: 1}, {ID: "s2", SequenceNumber: 3}},
	})
	assert.True(t, apperr.IsRetryable(err), "got %v", err)
}

func TestAssembleStintLocationNames(t *testing.T) {
	out, err := AssembleStint(StintInput{
		Stint:             model.Stint{ID: "stint-1"},
		StartLocationName: "Denver",
	})
	require.NoError(t, err)
	require.NotNil(t, out.StartLocationName)
	assert.Equal(t, "Denver", *out.StartLocationName)
	assert.Nil(t, out.EndLocationName)
}
