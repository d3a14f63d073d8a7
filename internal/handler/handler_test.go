package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/auth"
	"github.com/agrimitra/agrimitra/internal/model"
)

const testSecret = "test-secret"

// mockAI implements JSONCompleter and ChatStreamer with scripted
// responses and call counters.
type mockAI struct {
	jsonCalls   int
	streamCalls int
	jsonResults []json.RawMessage
	jsonErrs    []error
	streamBody  string
	streamErr   error
}

func (m *mockAI) CompleteJSON(ctx context.Context, mdl string, msgs []ai.Message) (json.RawMessage, error) {
	i := m.jsonCalls
	m.jsonCalls++
	if i < len(m.jsonErrs) && m.jsonErrs[i] != nil {
		return nil, m.jsonErrs[i]
	}
	if i < len(m.jsonResults) {
		return m.jsonResults[i], nil
	}
	return nil, errors.New("unexpected CompleteJSON call")
}

func (m *mockAI) StreamChat(ctx context.Context, mdl string, msgs []ai.Message) (io.ReadCloser, error) {
	m.streamCalls++
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return io.NopCloser(strings.NewReader(m.streamBody)), nil
}

type mockRecStore struct {
	calls int
	err   error
	rec   *model.Recommendation
	act   *model.Activity
}

func (s *mockRecStore) CreateWithActivity(ctx context.Context, rec *model.Recommendation, act *model.Activity) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	act.ReferenceID = rec.ID
	s.rec, s.act = rec, act
	return nil
}

type mockDiagStore struct {
	calls int
	err   error
	diag  *model.Diagnosis
	act   *model.Activity
}

func (s *mockDiagStore) CreateWithActivity(ctx context.Context, d *model.Diagnosis, act *model.Activity) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	act.ReferenceID = d.ID
	s.diag, s.act = d, act
	return nil
}

// mockWeather counts calls per sub-operation and replays a fixed payload.
type mockWeather struct {
	current, forecast, alerts, geocode, reverse int
	payload                                     json.RawMessage
	err                                         error
}

func (m *mockWeather) result() (json.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.payload, nil
}

func (m *mockWeather) Current(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	m.current++
	return m.result()
}

func (m *mockWeather) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	m.forecast++
	return m.result()
}

func (m *mockWeather) Alerts(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	m.alerts++
	return m.result()
}

func (m *mockWeather) Geocode(ctx context.Context, query string) (json.RawMessage, error) {
	m.geocode++
	return m.result()
}

func (m *mockWeather) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	m.reverse++
	return m.result()
}

func authToken(t *testing.T, uid uuid.UUID) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, "agrimitra", uid)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// newAPI registers h on an Echo app behind the real auth middleware.
func newAPI(method, path string, h echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	verifier := auth.NewJWTVerifier(testSecret, "agrimitra")
	e.Add(method, path, h, auth.Middleware(verifier))
	return e
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d (%s)", want, rec.Code, rec.Body.String())
	}
}
