package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ashureev/focusbooster/internal/session"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// streamBuffer is the per-client update buffer. Clients that fall further
// behind skip intermediate views; the next one carries the full state.
const streamBuffer = 16

// HandleStream handles GET /api/stream: a server-sent event stream of the
// session view. Every event carries the complete view.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	updates, unsubscribe := h.session.Subscribe(streamBuffer)
	defer unsubscribe()

	initial, err := h.session.Snapshot(r.Context())
	if err != nil {
		h.respond(w, http.StatusOK, initial, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", h.opts.RetryDelay.Milliseconds()); err != nil {
		h.logger.Warn("failed to write SSE retry header", "error", err, "request_id", reqID)
		return
	}

	var eventID int64
	send := func(v session.View) bool {
		eventID++
		if err := writeView(w, eventID, v); err != nil {
			h.logger.Warn("failed to write SSE state event", "error", err, "request_id", reqID)
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(initial) {
		return
	}
	h.logger.Info("SSE connection established", "request_id", reqID, "remote", r.RemoteAddr)

	keepalive := time.NewTicker(h.opts.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE connection closed", "request_id", reqID)
			return
		case v := <-updates:
			if !send(v) {
				return
			}
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				h.logger.Warn("failed to write SSE keepalive ping", "error", err, "request_id", reqID)
				return
			}
			flusher.Flush()
		}
	}
}

func writeView(w io.Writer, id int64, v session.View) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", id, data)
	return err
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
