package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cleo-screening/internal/checkpoint"
	"cleo-screening/internal/config"
	"cleo-screening/internal/engine"
)

type server struct {
	engine *engine.Engine
	cfg    *config.Config
	logger zerolog.Logger
}

type startSessionResponse struct {
	SessionID string   `json:"session_id"`
	Messages  []string `json:"messages"`
}

// inboundEvent is what the client sends over the websocket.
type inboundEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// outboundEvent is what the server pushes back.
type outboundEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

func (s *server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	storeLocation := r.URL.Query().Get("location")

	sessionID := uuid.NewString()
	job := s.cfg.Job(jobID, storeLocation)

	res, err := s.engine.Begin(r.Context(), sessionID, job)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to start session")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start session"})
		return
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("job_id", jobID).
		Msg("session started")

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID: sessionID,
		Messages:  res.Messages,
	})
}

func (s *server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	log := s.logger.With().Str("session_id", sessionID).Logger()
	log.Info().Msg("websocket connected")

	for {
		var in inboundEvent
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			log.Debug().Err(err).Msg("websocket closed")
			return
		}
		if in.Type != "user_message" {
			s.send(ctx, conn, outboundEvent{Type: "error", Content: "unsupported event type"})
			continue
		}

		res, err := s.engine.Resume(ctx, sessionID, in.Content)
		if err != nil {
			switch {
			case errors.Is(err, checkpoint.ErrNotFound):
				s.send(ctx, conn, outboundEvent{Type: "error", Content: "session not found or expired"})
				conn.Close(websocket.StatusPolicyViolation, "unknown session")
				return
			case errors.Is(err, engine.ErrTerminal):
				s.send(ctx, conn, outboundEvent{Type: "workflow_complete"})
				conn.Close(websocket.StatusNormalClosure, "workflow complete")
				return
			default:
				log.Error().Err(err).Msg("resume failed")
				s.send(ctx, conn, outboundEvent{Type: "error", Content: "something went wrong, please try again"})
				continue
			}
		}

		for _, msg := range res.Messages {
			s.send(ctx, conn, outboundEvent{Type: "ai_message", Content: msg})
		}
		if res.Terminal {
			s.send(ctx, conn, outboundEvent{Type: "workflow_complete"})
			conn.Close(websocket.StatusNormalClosure, "workflow complete")
			return
		}
	}
}

func (s *server) send(ctx context.Context, conn *websocket.Conn, ev outboundEvent) {
	if err := wsjson.Write(ctx, conn, ev); err != nil {
		s.logger.Debug().Err(err).Str("event", ev.Type).Msg("failed to write websocket event")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
