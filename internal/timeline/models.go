package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"backend-roadtrip/internal/model"
)

type EventType string

const (
	EventDeparture EventType = "departure"
	EventStop      EventType = "stop"
	EventLeg       EventType = "leg"
)

// Event is one entry of an assembled timeline. Data is DepartureData,
// StopData or LegData according to Type.
type Event struct {
	Type           EventType `json:"type"`
	SequenceNumber int       `json:"sequenceNumber"`
	Data           EventData `json:"data"`
}

type EventData interface {
	Window() (start, end *time.Time)
}

type DepartureData struct {
	Name       string     `json:"name,omitempty"`
	LocationID string     `json:"locationId,omitempty"`
	StartTime  *time.Time `json:"startTime"`
	EndTime    *time.Time `json:"endTime"`
}

func (d DepartureData) Window() (*time.Time, *time.Time) { return d.StartTime, d.EndTime }

type StopData struct {
	model.Stop
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

func (d StopData) Window() (*time.Time, *time.Time) { return d.StartTime, d.EndTime }

type LegData struct {
	model.Leg
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

func (d LegData) Window() (*time.Time, *time.Time) { return d.StartTime, d.EndTime }

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type           EventType       `json:"type"`
		SequenceNumber int             `json:"sequenceNumber"`
		Data           json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Type, e.SequenceNumber = raw.Type, raw.SequenceNumber

	switch raw.Type {
	case EventDeparture:
		var d DepartureData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	case EventStop:
		var d StopData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	case EventLeg:
		var d LegData
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return err
		}
		e.Data = d
	default:
		return fmt.Errorf("unknown timeline event type %q", raw.Type)
	}
	return nil
}

type StintTimelineModel struct {
	StintID               string     `json:"stintId"`
	Name                  string     `json:"name"`
	SequenceNumber        int        `json:"sequenceNumber"`
	Distance              float64    `json:"distance"`
	EstimatedDuration     int        `json:"estimatedDuration"`
	ContinuesFromPrevious bool       `json:"continuesFromPrevious"`
	StartTime             *time.Time `json:"startTime"`
	EndTime               *time.Time `json:"endTime"`
	StartLocationName     *string    `json:"startLocationName,omitempty"`
	EndLocationName       *string    `json:"endLocationName,omitempty"`
	Timeline              []Event    `json:"timeline"`

	firstLocationID string
	lastLocationID  string
}

type TripTimelineModel struct {
	TripID        string               `json:"tripId"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	StartDate     *time.Time           `json:"startDate"`
	EndDate       *time.Time           `json:"endDate"`
	TotalDistance float64              `json:"totalDistance"`
	TotalDuration int                  `json:"totalDuration"`
	Stints        []StintTimelineModel `json:"stints"`
}
