package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/conversation"
	"github.com/wayfarer-ai/wayfarer/internal/events"
	"github.com/wayfarer-ai/wayfarer/internal/graph"
	"github.com/wayfarer-ai/wayfarer/internal/sessions"
	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

type fakeDestinations struct {
	rec *travel.TravelRecommendation
	err error
}

func (f *fakeDestinations) RecommendDestinations(ctx context.Context, q travel.DestinationQuery) (*travel.TravelRecommendation, error) {
	return f.rec, f.err
}

type fakeWeatherPacking struct {
	rec *travel.WeatherPackingRecommendation
	err error
}

func (f *fakeWeatherPacking) RecommendWeatherPacking(ctx context.Context, q travel.WeatherQuery) (*travel.WeatherPackingRecommendation, error) {
	return f.rec, f.err
}

func newTestServer(t *testing.T) (*Server, *fakeDestinations, *fakeWeatherPacking) {
	t.Helper()

	rec := travel.EmptyTravelRecommendation()
	rec.Locations = []travel.Location{{City: "Porto", Country: "Portugal"}}
	dest := &fakeDestinations{rec: rec}
	weather := &fakeWeatherPacking{rec: &travel.WeatherPackingRecommendation{
		Weather: travel.WeatherInfo{Temperature: 16, Conditions: "Cloudy"},
	}}
	bus := events.NewBus(64)

	orch, err := graph.New(context.Background(), dest, weather, bus)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	svc := conversation.NewService(sessions.NewMemoryStore(), orch, bus)
	return NewServer(svc, bus, "127.0.0.1", 0), dest, weather
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func futureRange() string {
	start := time.Now().Add(72 * time.Hour).Format("2006-01-02")
	end := time.Now().Add(240 * time.Hour).Format("2006-01-02")
	return fmt.Sprintf(`{"start": %q, "end": %q}`, start, end)
}

func TestChatEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := fmt.Sprintf(`{"topic": "destinations", "preferences": ["wine", "coast"], "dateRange": %s}`, futureRange())
	rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var res conversation.TurnResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ConversationID == "" {
		t.Error("no conversation id in response")
	}
	if res.Destination == nil || res.Destination.Locations[0].City != "Porto" {
		t.Errorf("destination = %+v", res.Destination)
	}
}

func TestChatInvalidTopic(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", `{"topic": "flights"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "flights") {
		t.Errorf("error does not name the bad topic: %s", rr.Body)
	}
}

func TestChatMissingField(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := fmt.Sprintf(`{"topic": "destinations", "dateRange": %s}`, futureRange())
	rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "preferences") {
		t.Errorf("error does not name the missing field: %s", rr.Body)
	}
}

func TestChatRejectsBadDates(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{
			"malformed date",
			`{"topic": "destinations", "preferences": ["x"], "dateRange": {"start": "next week", "end": "2030-01-01"}}`,
		},
		{
			"end before start",
			`{"topic": "destinations", "preferences": ["x"], "dateRange": {"start": "2030-06-10", "end": "2030-06-01"}}`,
		},
		{
			"starts too soon",
			fmt.Sprintf(`{"topic": "destinations", "preferences": ["x"], "dateRange": {"start": %q, "end": %q}}`,
				time.Now().Add(time.Hour).Format(time.RFC3339),
				time.Now().Add(120*time.Hour).Format(time.RFC3339)),
		},
		{
			"not JSON",
			`topic=destinations`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", c.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", rr.Code, rr.Body)
			}
		})
	}
}

func TestChatHandlerFailure(t *testing.T) {
	srv, dest, _ := newTestServer(t)
	dest.err = errors.New("provider down")

	body := fmt.Sprintf(`{"topic": "destinations", "preferences": ["x"], "dateRange": %s}`, futureRange())
	rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", body)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	// Internals are never leaked to the client
	if strings.Contains(rr.Body.String(), "provider down") {
		t.Errorf("response leaks internal error: %s", rr.Body)
	}
}

func TestPlanEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := fmt.Sprintf(`{"topic": "anything-goes", "preferences": ["wine"], "activities": ["tastings"], "dateRange": %s}`, futureRange())
	rr := doJSON(t, srv.Handler(), http.MethodPost, "/api/plan", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var res conversation.TurnResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.TopicDefaulted {
		t.Error("unknown topic fallback not flagged in response")
	}
	if res.Destination == nil || res.WeatherPacking == nil {
		t.Errorf("pipeline result incomplete: %+v", res)
	}
}

func TestConversationLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	body := fmt.Sprintf(`{"topic": "destinations", "preferences": ["wine"], "dateRange": %s}`, futureRange())
	rr := doJSON(t, h, http.MethodPost, "/api/chat", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rr.Code)
	}
	var res conversation.TurnResult
	json.Unmarshal(rr.Body.Bytes(), &res)

	rr = doJSON(t, h, http.MethodGet, "/api/conversations/"+res.ConversationID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var sess sessions.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Errorf("session has %d messages", len(sess.Messages))
	}

	rr = doJSON(t, h, http.MethodDelete, "/api/conversations/"+res.ConversationID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/conversations/"+res.ConversationID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rr.Code)
	}
}

func TestGetMissingConversation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/api/conversations/conv_nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	body := fmt.Sprintf(`{"topic": "destinations", "preferences": ["wine"], "dateRange": %s}`, futureRange())
	if rr := doJSON(t, h, http.MethodPost, "/api/chat", body); rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rr.Code)
	}

	rr := doJSON(t, h, http.MethodGet, "/api/events?limit=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var evs []events.Event
	if err := json.Unmarshal(rr.Body.Bytes(), &evs); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(evs) == 0 {
		t.Error("no events recorded for the turn")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := doJSON(t, srv.Handler(), http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ok") {
		t.Errorf("body = %s", rr.Body)
	}
}
