package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "weather-key", 5*time.Second, zerolog.Nop())
}

func TestCurrent_BuildsQuery(t *testing.T) {
	var gotPath, gotLat, gotLon, gotKey string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		q := r.URL.Query()
		gotLat, gotLon, gotKey = q.Get("lat"), q.Get("lon"), q.Get("appid")
		_, _ = w.Write([]byte(`{"main":{"temp":28.4}}`))
	})

	raw, err := c.Current(context.Background(), 18.52, 73.86)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if gotPath != "/data/2.5/weather" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotLat != "18.52" || gotLon != "73.86" {
		t.Fatalf("unexpected coords %s,%s", gotLat, gotLon)
	}
	if gotKey != "weather-key" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
	if string(raw) != `{"main":{"temp":28.4}}` {
		t.Fatalf("payload remapped: %s", raw)
	}
}

func TestGeocode_PassesQuery(t *testing.T) {
	var gotQ string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo/1.0/direct" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotQ = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"name":"Pune","lat":18.52,"lon":73.86}]`))
	})
	if _, err := c.Geocode(context.Background(), "Pune, Maharashtra, IN"); err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if gotQ != "Pune, Maharashtra, IN" {
		t.Fatalf("query not forwarded, got %q", gotQ)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   apperr.Kind
	}{
		{http.StatusTooManyRequests, apperr.RateLimited},
		{http.StatusPaymentRequired, apperr.QuotaExceeded},
		{http.StatusUnauthorized, apperr.UpstreamFailure},
		{http.StatusInternalServerError, apperr.UpstreamFailure},
	}
	for _, tc := range cases {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.Forecast(context.Background(), 10, 10)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := apperr.KindOf(err); got != tc.want {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.want, got)
		}
	}
}

func TestInvalidJSONPayload(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	})
	_, err := c.Reverse(context.Background(), 10, 10)
	if err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
	if got := apperr.KindOf(err); got != apperr.UpstreamFailure {
		t.Fatalf("expected UpstreamFailure, got %s", got)
	}
}
