package model

import "time"

type StopType string

const (
	StopAttraction StopType = "attraction"
	StopPitstop    StopType = "pitstop"
	StopOvernight  StopType = "overnight"
	StopDeparture  StopType = "departure"
	StopFuel       StopType = "fuel"
	StopFood       StopType = "food"
	StopLodging    StopType = "lodging"
	StopOther      StopType = "other"
)

func (t StopType) Valid() bool {
	switch t {
	case StopAttraction, StopPitstop, StopOvernight, StopDeparture, StopFuel, StopFood, StopLodging, StopOther:
		return true
	}
	return false
}

// Location is a named place that stints and stops refer to by id.
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Stint struct {
	ID                string     `json:"id"`
	TripID            string     `json:"trip_id"`
	SequenceNumber    int        `json:"sequence_number"`
	Name              string     `json:"name"`
	StartLocationID   string     `json:"start_location_id,omitempty"`
	EndLocationID     string     `json:"end_location_id,omitempty"`
	Distance          float64    `json:"distance"`
	EstimatedDuration int        `json:"estimated_duration"`
	Notes             string     `json:"notes"`
	DepartureTime     *time.Time `json:"departure_time,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Stop struct {
	ID             string     `json:"id"`
	StintID        string     `json:"stint_id"`
	TripID         string     `json:"trip_id"`
	SequenceNumber int        `json:"sequence_number"`
	LocationID     string     `json:"location_id,omitempty"`
	Name           string     `json:"name"`
	StopType       StopType   `json:"stop_type"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	ArrivalTime    *time.Time `json:"arrival_time,omitempty"`
	DepartureTime  *time.Time `json:"departure_time,omitempty"`
	Duration       int        `json:"duration"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Leg struct {
	ID                  string    `json:"id"`
	StintID             string    `json:"stint_id"`
	SequenceNumber      int       `json:"sequence_number"`
	StartStopID         string    `json:"start_stop_id"`
	EndStopID           string    `json:"end_stop_id"`
	Distance            float64   `json:"distance"`
	EstimatedTravelTime int       `json:"estimated_travel_time"`
	RouteType           string    `json:"route_type,omitempty"`
	Polyline            string    `json:"polyline,omitempty"`
	Notes               string    `json:"notes"`
	CreatedAt           time.Time `json:"created_at"`
}

// Touches reports whether the leg starts or ends at stopID.
func (l Leg) Touches(stopID string) bool {
	return l.StartStopID == stopID || l.EndStopID == stopID
}
