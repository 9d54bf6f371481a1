package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ashureev/agentdesk/internal/identity"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// ListNotifications returns the active toasts of the caller's channel.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.hub.Active(identity.ChannelFromContext(r.Context())))
}

// DismissNotification removes an active toast.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.hub.Dismiss(identity.ChannelFromContext(r.Context()), chi.URLParam(r, "notificationID")) {
		Error(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lastEventID reads the replay position from the Last-Event-ID header or the
// lastEventId query parameter.
func lastEventID(r *http.Request) int64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("lastEventId")
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// StreamNotifications serves the caller's toasts as server-sent events.
// Reconnecting clients get the events they missed, as far as the replay
// queue still holds them.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	channel := identity.ChannelFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	after := lastEventID(r)
	sub := h.hub.Subscribe(channel, after)
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", h.cfg.Notify.RetryDelay.Milliseconds()); err != nil {
		h.logger.Warn("Failed to write SSE retry header", "error", err, "channel", channel)
		return
	}
	for _, ev := range sub.Missed {
		if err := writeEvent(w, ev); err != nil {
			h.logger.Warn("Failed to replay notification", "error", err, "channel", channel)
			return
		}
	}
	if err := writeSSE(w, "connected", `{"status":"connected"}`); err != nil {
		return
	}
	flusher.Flush()

	h.logger.Info("Notification stream connected", "channel", channel, "reconnect", after > 0, "replayed", len(sub.Missed))

	keepalive := time.NewTicker(h.cfg.Notify.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("Notification stream disconnected", "channel", channel)
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.logger.Warn("Failed to write notification", "error", err, "channel", channel)
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				h.logger.Warn("Failed to write SSE keepalive ping", "error", err, "channel", channel)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", ev.ID, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// NotificationSocket serves the caller's toasts over a websocket. Messages
// are the same JSON events as the SSE stream.
func (h *Handler) NotificationSocket(w http.ResponseWriter, r *http.Request) {
	channel := identity.ChannelFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns(),
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "channel", channel)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "channel", channel)
		}
	}()

	// Clients only listen; CloseRead cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	sub := h.hub.Subscribe(channel, lastEventID(r))
	defer sub.Unsubscribe()

	for _, ev := range sub.Missed {
		if err := writeJSON(ctx, ws, ev); err != nil {
			return
		}
	}

	keepalive := time.NewTicker(h.cfg.Notify.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Notification socket disconnected", "channel", channel)
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				h.logger.Warn("Failed to write notification", "error", err, "channel", channel)
				return
			}
		case <-keepalive.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.cfg.Notify.KeepaliveInterval)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logger.Debug("WebSocket ping failed", "error", err, "channel", channel)
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

// originPatterns returns the hosts allowed to open websockets.
func (h *Handler) originPatterns() []string {
	if h.cfg.IsDevelopment() {
		return []string{"*"}
	}
	var patterns []string
	for _, o := range h.cfg.AllowedOrigins() {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
