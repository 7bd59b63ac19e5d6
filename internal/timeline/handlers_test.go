package timeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-roadtrip/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimelineHandlers(t *testing.T) {
	mem := seedTrip(t)
	app := fiber.New()
	RegisterRoutes(app, NewService(mem, stubTrips{"trip-1": {ID: "trip-1", Title: "Utah"}}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/trips/trip-1/timeline", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trip TripTimelineModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trip))
	assert.Equal(t, "Utah", trip.Title)
	assert.Len(t, trip.Stints, 2)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/stints/stint-2/timeline", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stint StintTimelineModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stint))
	assert.Equal(t, "stint-2", stint.StintID)
	assert.Equal(t, EventDeparture, stint.Timeline[0].Type)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/trips/nope/timeline", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTimelineHandlersInconsistentIsConflict(t *testing.T) {
	mem := seedTrip(t)
	// A gap in numbering is what a reader sees mid-renumber.
	require.NoError(t, mem.SaveStop(context.Background(), model.Stop{ID: "b2", StintID: "stint-2", TripID: "trip-1", SequenceNumber: 5}))

	app := fiber.New()
	RegisterRoutes(app, NewService(mem, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stints/stint-2/timeline", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
