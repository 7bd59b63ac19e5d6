package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-roadtrip/internal/auth"
	"backend-roadtrip/internal/config"
	"backend-roadtrip/internal/events"
	"backend-roadtrip/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func memoryConfig() config.Config {
	return config.Config{
		JWTSecret:        "secret",
		ServerPort:       ":0",
		StoreDriver:      config.StoreDriverMemory,
		TimelineCacheTTL: time.Minute,
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthRoute(t *testing.T) {
	s := NewServer(memoryConfig(), nil, nil)
	defer s.Close()

	resp, body := call(t, s.App, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
	if !strings.Contains(string(body), `"store":"memory"`) {
		t.Fatalf("unexpected health body %s", body)
	}
}

func TestSelectStoreFallsBackToMemory(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = config.StoreDriverPostgres
	if _, ok := selectStore(cfg, nil).(*store.Memory); !ok {
		t.Fatalf("expected memory store without a pool")
	}
}

func TestWritesRequireToken(t *testing.T) {
	s := NewServer(memoryConfig(), nil, nil)
	defer s.Close()

	resp, _ := call(t, s.App, http.MethodPost, "/trips/trip-1/stints", "", map[string]any{"name": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPostgresOnlyRoutesNeedDatabase(t *testing.T) {
	s := NewServer(memoryConfig(), nil, nil)
	defer s.Close()

	for _, path := range []string{"/locations/loc-1", "/trips/trip-1"} {
		resp, _ := call(t, s.App, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404 without postgres, got %d", path, resp.StatusCode)
		}
	}
}

func TestUnknownTripTimelineIsNotFound(t *testing.T) {
	s := NewServer(memoryConfig(), nil, nil)
	defer s.Close()

	resp, _ := call(t, s.App, http.MethodGet, "/trips/never-planned/timeline", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPlanAndReadTimeline(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewServer(memoryConfig(), nil, rdb)
	defer s.Close()
	token := bearer(t, "user-1")

	resp, body := call(t, s.App, http.MethodPost, "/trips/trip-1/stints", token, map[string]any{
		"name":           "Day one",
		"departure_time": "2024-06-01T09:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create stint: %d %s", resp.StatusCode, body)
	}
	var stint struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &stint)

	var stopIDs []string
	for _, stop := range []map[string]any{
		{"name": "Denver"},
		{"name": "Vail", "duration": 60},
	} {
		resp, body = call(t, s.App, http.MethodPost, "/stints/"+stint.ID+"/stops", token, stop)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create stop: %d %s", resp.StatusCode, body)
		}
		var created struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &created)
		stopIDs = append(stopIDs, created.ID)
	}

	resp, body = call(t, s.App, http.MethodPost, "/legs/", token, map[string]any{
		"stint_id":              stint.ID,
		"start_stop_id":         stopIDs[0],
		"end_stop_id":           stopIDs[1],
		"estimated_travel_time": 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create leg: %d %s", resp.StatusCode, body)
	}

	resp, body = call(t, s.App, http.MethodGet, "/trips/trip-1/timeline", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trip timeline: %d %s", resp.StatusCode, body)
	}
	var tl struct {
		TotalDuration int `json:"totalDuration"`
		Stints        []struct {
			EndTime  time.Time `json:"endTime"`
			Timeline []struct {
				Type string `json:"type"`
			} `json:"timeline"`
		} `json:"stints"`
	}
	if err := json.Unmarshal(body, &tl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tl.TotalDuration != 90 || len(tl.Stints) != 1 || len(tl.Stints[0].Timeline) != 4 {
		t.Fatalf("unexpected timeline %s", body)
	}
	if want := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC); !tl.Stints[0].EndTime.Equal(want) {
		t.Fatalf("unexpected end time %v", tl.Stints[0].EndTime)
	}

	// Reordering invalidates the cached trip timeline.
	resp, body = call(t, s.App, http.MethodPut, "/stints/"+stint.ID+"/stops/order", token, []map[string]any{
		{"stop_id": stopIDs[1], "sequence_number": 1},
		{"stop_id": stopIDs[0], "sequence_number": 2},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reorder: %d %s", resp.StatusCode, body)
	}
	_, body = call(t, s.App, http.MethodGet, "/trips/trip-1/timeline", "", nil)
	if err := json.Unmarshal(body, &tl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tl.Stints[0].Timeline) != 3 {
		t.Fatalf("expected leg to drop out after reversing stops: %s", body)
	}

	_, metricsBody := call(t, s.App, http.MethodGet, "/metrics", "", nil)
	for _, want := range []string{
		`roadtrip_changes_total{kind="stops_reordered"} 1`,
		`roadtrip_sequence_operations_total{op="insert_stop",outcome="ok"} 2`,
		`roadtrip_timeline_cache_lookups_total{result="miss"} 2`,
	} {
		if !strings.Contains(string(metricsBody), want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestCrossTripMoveForbiddenWithoutMembership(t *testing.T) {
	s := NewServer(memoryConfig(), nil, nil)
	defer s.Close()
	token := bearer(t, "user-1")

	var ids []string
	for _, tripID := range []string{"trip-1", "trip-2"} {
		_, body := call(t, s.App, http.MethodPost, "/trips/"+tripID+"/stints", token, map[string]any{"name": tripID})
		var st struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &st)
		ids = append(ids, st.ID)
	}
	_, body := call(t, s.App, http.MethodPost, "/stints/"+ids[0]+"/stops", token, map[string]any{"name": "a"})
	var stop struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &stop)

	resp, _ := call(t, s.App, http.MethodPost, "/stops/"+stop.ID+"/move", token, map[string]any{"target_stint_id": ids[1]})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestNATSFailureDoesNotStopServer(t *testing.T) {
	old := newNATSPublisherFn
	defer func() { newNATSPublisherFn = old }()
	newNATSPublisherFn = func(string, bool, events.PublisherMetrics) (*events.NATSPublisher, error) {
		return nil, errors.New("no nats")
	}

	cfg := memoryConfig()
	cfg.NATSURL = "nats://nowhere:4222"
	s := NewServer(cfg, nil, nil)
	defer s.Close()
	if s.Events != nil {
		t.Fatalf("expected events disabled")
	}
}
