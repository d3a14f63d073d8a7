package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/ai"
	"github.com/agrimitra/agrimitra/internal/apperr"
	"github.com/agrimitra/agrimitra/internal/model"
	"github.com/agrimitra/agrimitra/internal/response"
)

const chatSystemPrompt = "You are AgriMitra, a friendly farming assistant for smallholder farmers. " +
	"Answer questions about crops, soil, irrigation, pests, fertilizers, weather impact and market practices. " +
	"Keep answers practical and concise. If a question is outside farming, politely steer back to agriculture."

// ChatHandler streams AI chat completions back to the caller.
type ChatHandler struct {
	AI     ChatStreamer
	Model  string
	Logger zerolog.Logger
}

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

// Handle relays a streaming completion (POST /api/chat). The upstream
// byte stream is copied to the response as it arrives; nothing buffers
// the whole stream and nothing is persisted.
func (h *ChatHandler) Handle(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}

	msgs, aerr := buildChatMessages(req.Messages)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}

	stream, err := h.AI.StreamChat(c.Request().Context(), h.Model, msgs)
	if err != nil {
		return h.fail(c, err)
	}
	defer stream.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	// Transparent relay. A mid-stream failure just truncates the stream;
	// headers are already gone so no structured error can follow.
	buf := make([]byte, 4096)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if _, werr := res.Write(buf[:n]); werr != nil {
				h.Logger.Debug().Err(werr).Msg("chat client disconnected")
				break
			}
			res.Flush()
		}
		if rerr != nil {
			if rerr != io.EOF {
				h.Logger.Warn().Err(rerr).Msg("chat upstream stream ended with error")
			}
			break
		}
	}
	return nil
}

// buildChatMessages validates the conversation bounds and returns the
// sanitized upstream message list with the system instruction prepended.
func buildChatMessages(in []model.ChatMessage) ([]ai.Message, *apperr.Error) {
	if len(in) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "messages must not be empty")
	}
	if len(in) > model.MaxChatMessages {
		return nil, apperr.New(apperr.InvalidInput, "too many messages")
	}

	out := make([]ai.Message, 0, len(in)+1)
	out = append(out, ai.TextMessage(model.RoleSystem, chatSystemPrompt))
	for _, m := range in {
		switch m.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
		default:
			return nil, apperr.New(apperr.InvalidInput, "invalid message role")
		}
		if len([]rune(m.Content)) > model.MaxChatContentLength {
			return nil, apperr.New(apperr.InvalidInput, "message content too long")
		}
		content := m.Content
		if m.Role == model.RoleUser {
			content = sanitizeContent(content, model.MaxChatContentLength)
		}
		out = append(out, ai.TextMessage(m.Role, content))
	}
	return out, nil
}

func (h *ChatHandler) fail(c echo.Context, err error) error {
	h.Logger.Error().Err(err).Str("stage", "upstream").Msg("chat request failed")
	var aerr *apperr.Error
	if !errors.As(err, &aerr) {
		aerr = apperr.Wrap(apperr.UpstreamFailure, "chat completion failed", err)
	}
	return response.FromAppError(c, aerr)
}
