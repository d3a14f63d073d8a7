// Package ai is the boundary to the OpenAI-compatible completion
// gateway. It normalizes provider failures into the error taxonomy and
// keeps the provider's loosely-typed JSON from leaking past callers that
// remap it.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/apperr"
)

// Message is one chat turn sent upstream. Content is a string for plain
// text or a []ContentPart for multimodal (image) messages.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one part of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

type ImageRef struct {
	URL string `json:"url"`
}

// TextMessage builds a plain-text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ImageMessage builds a user message carrying a prompt plus an image.
func ImageMessage(text, imageURL string) Message {
	return Message{Role: "user", Content: []ContentPart{
		{Type: "text", Text: text},
		{Type: "image_url", ImageURL: &ImageRef{URL: imageURL}},
	}}
}

// Client calls the completion gateway. One instance is built at process
// start and shared by all handlers.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewClient returns a Client for the gateway at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "ai").Logger(),
	}
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON requests a completion in JSON-object mode and returns the
// raw JSON the model produced. Field names inside are provider-chosen;
// callers must remap before exposing the shape.
func (c *Client) CompleteJSON(ctx context.Context, model string, msgs []Message) (json.RawMessage, error) {
	body, err := json.Marshal(completionRequest{
		Model:          model,
		Messages:       msgs,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "marshal completion request", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "read completion response", err)
	}
	if aerr := c.normalize(resp.StatusCode, data); aerr != nil {
		return nil, aerr
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "decode completion response", err)
	}
	if len(out.Choices) == 0 {
		return nil, apperr.New(apperr.UpstreamFailure, "completion returned no choices")
	}

	content := stripCodeFence(out.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, apperr.New(apperr.UpstreamFailure, "completion content is not valid JSON")
	}
	return json.RawMessage(content), nil
}

// StreamChat starts a streaming completion and returns the upstream body
// for byte pass-through. The caller owns the ReadCloser and relays it
// chunk by chunk without buffering.
func (c *Client) StreamChat(ctx context.Context, model string, msgs []Message) (io.ReadCloser, error) {
	body, err := json.Marshal(completionRequest{
		Model:    model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "marshal stream request", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if aerr := c.normalize(resp.StatusCode, data); aerr != nil {
			return nil, aerr
		}
		// A 2xx other than 200 carries no event stream to relay.
		return nil, apperr.New(apperr.UpstreamFailure, fmt.Sprintf("AI gateway returned %d instead of a stream", resp.StatusCode))
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamFailure, "gateway call failed", err)
	}
	return resp, nil
}

// normalize maps the gateway status onto the error taxonomy. Returns nil
// for 2xx. Raw provider payloads go to the log, never to the client.
func (c *Client) normalize(status int, body []byte) *apperr.Error {
	if status >= 200 && status < 300 {
		return nil
	}
	c.logger.Warn().Int("status", status).Bytes("body", truncate(body, 512)).Msg("gateway non-2xx")
	switch status {
	case http.StatusTooManyRequests:
		return apperr.New(apperr.RateLimited, "AI gateway rate limit exceeded, try again later")
	case http.StatusPaymentRequired:
		return apperr.New(apperr.QuotaExceeded, "AI gateway credits exhausted")
	default:
		return apperr.New(apperr.UpstreamFailure, fmt.Sprintf("AI gateway returned %d", status))
	}
}

// stripCodeFence removes a markdown ```json fence some models wrap
// around JSON-mode output.
func stripCodeFence(s string) string {
	b := []byte(s)
	b = bytes.TrimSpace(b)
	if bytes.HasPrefix(b, []byte("```")) {
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			b = b[i+1:]
		}
		b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	}
	return string(bytes.TrimSpace(b))
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
