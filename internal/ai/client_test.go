package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test-key", 5*time.Second, zerolog.Nop())
	return c, srv
}

func TestCompleteJSON_ReturnsContent(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if rf, ok := req["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
			t.Fatalf("expected json_object response_format, got %v", req["response_format"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"recommendations":[]}`}},
			},
		})
	})

	raw, err := c.CompleteJSON(context.Background(), "m", []Message{TextMessage("user", "hi")})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if string(raw) != `{"recommendations":[]}` {
		t.Fatalf("unexpected content: %s", raw)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer key, got %q", gotAuth)
	}
}

func TestCompleteJSON_StripsCodeFence(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}},
			},
		})
	})
	raw, err := c.CompleteJSON(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("fence not stripped: %s", raw)
	}
}

func TestCompleteJSON_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   apperr.Kind
	}{
		{http.StatusTooManyRequests, apperr.RateLimited},
		{http.StatusPaymentRequired, apperr.QuotaExceeded},
		{http.StatusInternalServerError, apperr.UpstreamFailure},
		{http.StatusBadGateway, apperr.UpstreamFailure},
	}
	for _, tc := range cases {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.CompleteJSON(context.Background(), "m", nil)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := apperr.KindOf(err); got != tc.want {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.want, got)
		}
	}
}

func TestCompleteJSON_InvalidContent(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sorry, I cannot"}},
			},
		})
	})
	_, err := c.CompleteJSON(context.Background(), "m", nil)
	if err == nil {
		t.Fatal("expected error for non-JSON content")
	}
	if got := apperr.KindOf(err); got != apperr.UpstreamFailure {
		t.Fatalf("expected UpstreamFailure, got %s", got)
	}
}

func TestStreamChat_PassesBodyThrough(t *testing.T) {
	const payload = "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["stream"] != true {
			t.Fatalf("expected stream:true, got %v", req["stream"])
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, payload)
	})

	stream, err := c.StreamChat(context.Background(), "m", []Message{TextMessage("user", "hi")})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	defer stream.Close()
	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("stream altered: %q", got)
	}
}

func TestStreamChat_NonOKSuccessStatus(t *testing.T) {
	// 202 is 2xx but carries no event stream; it must come back as a
	// real classified error, never a nil stream with a nil-valued error.
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	stream, err := c.StreamChat(context.Background(), "m", []Message{TextMessage("user", "hi")})
	if stream != nil {
		t.Fatal("expected nil stream for 202 response")
	}
	if err == nil {
		t.Fatal("expected an error for 202 response")
	}
	var aerr *apperr.Error
	if !errors.As(err, &aerr) || aerr == nil {
		t.Fatalf("expected a classified error, got %T: %v", err, err)
	}
	if aerr.Kind != apperr.UpstreamFailure {
		t.Fatalf("expected UpstreamFailure, got %s", aerr.Kind)
	}
}

func TestStreamChat_ErrorMapping(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.StreamChat(context.Background(), "m", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := apperr.KindOf(err); got != apperr.RateLimited {
		t.Fatalf("expected RateLimited, got %s", got)
	}
}
