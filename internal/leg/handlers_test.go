package leg

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-roadtrip/internal/model"

	"github.com/gofiber/fiber/v2"
)

func newLegApp(t *testing.T) (*fiber.App, *Index) {
	t.Helper()
	idx := NewIndex(seed(t), nil)
	app := fiber.New()
	RegisterRoutes(app.Group("/legs"), idx, func(c *fiber.Ctx) error { return c.Next() })
	return app, idx
}

func TestLegHandlersCreateAndBetween(t *testing.T) {
	app, _ := newLegApp(t)

	body, _ := json.Marshal(model.Leg{StintID: "stint-1", StartStopID: "a", EndStopID: "b", Distance: 10, EstimatedTravelTime: 15})
	req := httptest.NewRequest(http.MethodPost, "/legs/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create leg status: %v %d", err, resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/legs/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict")
	}

	req = httptest.NewRequest(http.MethodGet, "/legs/between?start=a&end=b", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("between status: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/legs/between?start=b&end=a", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}

	req = httptest.NewRequest(http.MethodGet, "/legs/?stint_id=stint-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var legs []model.Leg
	_ = json.NewDecoder(resp.Body).Decode(&legs)
	if len(legs) != 1 {
		t.Fatalf("expected one leg, got %d", len(legs))
	}
}

func TestLegHandlersBadRequest(t *testing.T) {
	app, _ := newLegApp(t)

	req := httptest.NewRequest(http.MethodPost, "/legs/", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}

	body, _ := json.Marshal(model.Leg{StintID: "stint-1", StartStopID: "a", EndStopID: "c"})
	req = httptest.NewRequest(http.MethodPost, "/legs/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected validation failure")
	}

	req = httptest.NewRequest(http.MethodGet, "/legs/between?start=a", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing end")
	}

	req = httptest.NewRequest(http.MethodGet, "/legs/", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing stint")
	}
}

func TestLegHandlersDelete(t *testing.T) {
	app, idx := newLegApp(t)
	created, err := idx.Create(context.Background(), model.Leg{StintID: "stint-1", StartStopID: "a", EndStopID: "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/legs/"+created.ID, nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/legs/"+created.ID, nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found on second delete")
	}
}
