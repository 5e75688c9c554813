// Package api provides HTTP handlers for the focusbooster view API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/focusbooster/internal/coach"
	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/middleware"
	"github.com/ashureev/focusbooster/internal/session"
	"github.com/go-chi/chi/v5"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Session is the subset of session.Service the handlers drive.
type Session interface {
	Snapshot(ctx context.Context) (session.View, error)
	Start(ctx context.Context) (session.View, error)
	Pause(ctx context.Context) (session.View, error)
	Reset(ctx context.Context) (session.View, error)
	SetMood(ctx context.Context, mood domain.Mood) (session.View, error)
	SendChat(ctx context.Context, text string) (session.View, error)
	Subscribe(buffer int) (<-chan session.View, func())
}

// Options configures a Handler.
type Options struct {
	AllowedOrigins     []string
	KeepaliveInterval  time.Duration
	RetryDelay         time.Duration
	MaxRequestBodySize int64
	Logger             *slog.Logger
}

// Handler serves the view API, the SSE stream and the WebSocket feed.
type Handler struct {
	session Session
	opts    Options
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(s Session, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.MaxRequestBodySize <= 0 {
		opts.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Handler{session: s, opts: opts, logger: opts.Logger}
}

// RegisterRoutes registers the view API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(h.opts.AllowedOrigins))
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", h.HandleState)
			r.Post("/timer/{action}", h.HandleTimer)
			r.Put("/mood", h.HandleMood)
			r.Post("/chat", h.HandleChat)
			r.Get("/stats", h.HandleStats)
			r.Get("/stream", h.HandleStream)
			r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
		r.Get("/ws/state", h.HandleWebSocket)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// HandleState handles GET /api/state.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	v, err := h.session.Snapshot(r.Context())
	h.respond(w, http.StatusOK, v, err)
}

// HandleTimer handles POST /api/timer/{start|pause|reset}.
func (h *Handler) HandleTimer(w http.ResponseWriter, r *http.Request) {
	var op func(context.Context) (session.View, error)
	switch action := chi.URLParam(r, "action"); action {
	case "start":
		op = h.session.Start
	case "pause":
		op = h.session.Pause
	case "reset":
		op = h.session.Reset
	default:
		Error(w, http.StatusNotFound, "unknown timer action")
		return
	}
	v, err := op(r.Context())
	h.respond(w, http.StatusOK, v, err)
}

type moodRequest struct {
	Mood string `json:"mood"`
}

// HandleMood handles PUT /api/mood.
func (h *Handler) HandleMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if !h.decode(w, r, &req) {
		return
	}
	mood, err := domain.ParseMood(req.Mood)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.session.SetMood(r.Context(), mood)
	h.respond(w, http.StatusOK, v, err)
}

type chatRequest struct {
	Message string `json:"message"`
}

// HandleChat handles POST /api/chat. The reply arrives later through the
// stream, so a successful send answers 202.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.session.SendChat(r.Context(), req.Message)
	h.respond(w, http.StatusAccepted, v, err)
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	v, err := h.session.Snapshot(r.Context())
	if err != nil {
		h.respond(w, http.StatusOK, v, err)
		return
	}
	JSON(w, http.StatusOK, v.Stats)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, v session.View, err error) {
	switch {
	case err == nil:
		JSON(w, status, v)
	case errors.Is(err, coach.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, coach.ErrBusy):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "session unavailable")
	default:
		h.logger.Error("Session command failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
