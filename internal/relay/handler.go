// Package relay serves the coach endpoint: it builds the system prompt,
// forwards the conversation to the LLM gateway and maps gateway failures
// to the status codes the coach client understands.
package relay

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/focusbooster/internal/api"
	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Paths the relay is mounted at.
const (
	FunctionPath = "/functions/v1/focus-chat"
	APIPath      = "/api/coach"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Client-facing error texts.
const (
	msgRateLimited = "Rate limit exceeded. Please try again later."
	msgQuota       = "AI credits depleted. Please add credits to continue."
	msgUnavailable = "AI service unavailable"
)

// Request is the body accepted by the relay.
type Request struct {
	Messages []domain.ChatMessage `json:"messages"`
	Mood     string               `json:"mood"`
	Type     domain.RequestKind   `json:"type"`
}

// Options configures a Handler.
type Options struct {
	// ClientKey, when set, must be presented as a bearer token or apikey header.
	ClientKey          string
	MaxRequestBodySize int64
	RateLimit          int
	RateWindow         time.Duration
	Logger             *slog.Logger
}

// Handler serves coach relay requests.
type Handler struct {
	completer   Completer
	rateLimiter *RateLimiter
	clientKey   string
	maxBodySize int64
	logger      *slog.Logger
}

// NewHandler creates a relay handler around a gateway.
func NewHandler(completer Completer, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxRequestBodySize
	}
	limit := opts.RateLimit
	if limit <= 0 {
		limit = 10
	}
	window := opts.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	return &Handler{
		completer:   completer,
		rateLimiter: NewRateLimiter(limit, window),
		clientKey:   opts.ClientKey,
		maxBodySize: maxBody,
		logger:      logger,
	}
}

// RegisterRoutes mounts the relay on both paths with open CORS.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS([]string{"*"}))
		for _, path := range []string{FunctionPath, APIPath} {
			r.Post(path, h.HandleCoach)
			r.Options(path, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}
	})
}

// Close releases handler resources.
func (h *Handler) Close() {
	h.rateLimiter.Close()
}

// HandleCoach handles POST requests carrying {messages, mood, type}.
func (h *Handler) HandleCoach(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = r.Header.Get("X-Request-ID")
	}

	if !h.authorized(r) {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(clientKey(r)) {
		api.Error(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, m := range req.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			api.Error(w, http.StatusBadRequest, "invalid message role")
			return
		}
	}
	if req.Type == "" {
		req.Type = domain.KindChat
	}

	h.logger.Info("Coach relay request",
		"request_id", reqID,
		"type", req.Type,
		"mood", req.Mood,
		"messages", len(req.Messages),
	)

	start := time.Now()
	reply, err := h.completer.Complete(r.Context(), BuildMessages(req.Type, req.Mood, req.Messages))
	if err != nil {
		status, message := mapError(err)
		h.logger.Error("Coach relay failed",
			"request_id", reqID,
			"status", status,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		api.Error(w, status, message)
		return
	}

	h.logger.Info("Coach relay reply",
		"request_id", reqID,
		"type", req.Type,
		"reply_length", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	api.JSON(w, http.StatusOK, map[string]string{"message": reply})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.clientKey == "" {
		return true
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.Header.Get("apikey")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.clientKey)) == 1
}

// mapError converts a completion failure to a status and client message.
func mapError(err error) (int, string) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		switch gwErr.Status {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, msgRateLimited
		case http.StatusPaymentRequired:
			return http.StatusPaymentRequired, msgQuota
		default:
			return http.StatusInternalServerError, msgUnavailable
		}
	}
	return http.StatusInternalServerError, err.Error()
}

// clientKey identifies the caller for rate limiting. RemoteAddr is already
// rewritten by chi's RealIP middleware when it is installed.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
