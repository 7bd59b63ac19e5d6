package sequence

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, auth Authorizer) (*fiber.App, *recorder) {
	t.Helper()
	rec := newRecorder()
	m := NewManager(fixture(t), auth, rec)
	app := fiber.New()
	RegisterRoutes(app, m, func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app, rec
}

func send(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHandlersReorderStops(t *testing.T) {
	app, rec := newApp(t, nil)

	resp := send(t, app, http.MethodPut, "/stints/stint-a/stops/order", []StopPosition{{"a3", 1}, {"a1", 2}, {"a2", 3}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []struct {
		ID             string `json:"id"`
		SequenceNumber int    `json:"sequence_number"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 3)
	assert.Equal(t, "a3", got[0].ID)
	assert.Len(t, rec.changes, 1)

	resp = send(t, app, http.MethodPut, "/stints/stint-a/stops/order", []StopPosition{{"a3", 1}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send(t, app, http.MethodPut, "/stints/nope/stops/order", []StopPosition{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlersReorderStints(t *testing.T) {
	app, _ := newApp(t, nil)
	resp := send(t, app, http.MethodPut, "/trips/trip-1/stints/order", []StintPosition{{"stint-b", 1}, {"stint-a", 2}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlersInsertAndRemove(t *testing.T) {
	app, _ := newApp(t, nil)

	resp := send(t, app, http.MethodPost, "/stints/stint-b/stops", map[string]any{"name": "Fuel", "stop_type": "fuel", "position": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stop struct {
		ID             string `json:"id"`
		SequenceNumber int    `json:"sequence_number"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stop))
	assert.Equal(t, 1, stop.SequenceNumber)

	resp = send(t, app, http.MethodPost, "/stints/stint-b/stops", map[string]any{"name": "Bad", "stop_type": "spaceport"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = send(t, app, http.MethodDelete, "/stops/"+stop.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = send(t, app, http.MethodPost, "/trips/trip-1/stints", map[string]any{"name": "Detour"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = send(t, app, http.MethodDelete, "/stints/stint-b", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = send(t, app, http.MethodDelete, "/stints/stint-b", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlersMoveStop(t *testing.T) {
	auth := &stubAuth{}
	app, _ := newApp(t, auth)

	resp := send(t, app, http.MethodPost, "/stops/a2/move", map[string]any{"target_stint_id": "stint-b", "sequence_number": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res MoveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "stint-b", res.Stop.StintID)
	assert.ElementsMatch(t, []string{"leg-a12", "leg-a23"}, res.RemovedLegs)

	resp = send(t, app, http.MethodPost, "/stops/a1/move", map[string]any{"target_stint_id": "stint-c"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, auth.calls)

	resp = send(t, app, http.MethodPost, "/stops/a1/move", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
