// Package api provides the HTTP handlers of the dashboard server.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/ashureev/agentdesk/internal/config"
	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/identity"
	"github.com/ashureev/agentdesk/internal/middleware"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/remote"
	"github.com/ashureev/agentdesk/internal/view"
)

// DashboardPath is where a successful login lands.
const DashboardPath = "/dashboard"

// defaultMaxRequestBodySize is the limit for JSON and form bodies (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	client *remote.Client
	hub    *notify.Hub
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler creates a Handler over the API client and notification hub.
func NewHandler(client *remote.Client, hub *notify.Hub, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, hub: hub, cfg: cfg, logger: logger}
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

// session returns the remote session over the request's credential store.
func (h *Handler) session(r *http.Request) *remote.Session {
	return h.client.Session(identity.StoreFromContext(r.Context()))
}

func (h *Handler) notifier(r *http.Request) notify.Notifier {
	return h.hub.For(identity.ChannelFromContext(r.Context()))
}

// currentUser returns the stored identity of the request.
func (h *Handler) currentUser(r *http.Request) (domain.Identity, bool) {
	store := identity.StoreFromContext(r.Context())
	if store == nil {
		return domain.Identity{}, false
	}
	return store.Identity()
}

// fail answers a failed remote operation. Auth failures end the session:
// credentials are cleared and the client is told to go to the login page.
// A non-empty title also raises an error toast.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, title string) {
	h.failWith(w, r, err, title, nil)
}

// failWith is fail with extra fields merged into the body.
func (h *Handler) failWith(w http.ResponseWriter, r *http.Request, err error, title string, extra map[string]any) {
	msg := view.Message(err)
	h.logger.Warn("Remote operation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"ip", identity.IPFromRequest(r),
		"kind", remote.Kind(err),
		"error", err,
	)

	if title != "" {
		h.notifier(r).Notify(notify.KindError, title, msg)
	}

	body := map[string]any{"error": msg}
	for k, v := range extra {
		body[k] = v
	}

	if remote.IsAuthFailure(err) || errors.Is(err, view.ErrNotLoggedIn) {
		channel := identity.ChannelFromContext(r.Context())
		if store := identity.StoreFromContext(r.Context()); store != nil {
			store.Clear()
		}
		h.hub.Forget(channel)
		body["redirect"] = middleware.LoginPath
		JSON(w, http.StatusUnauthorized, body)
		return
	}

	JSON(w, statusFor(err), body)
}

// statusFor maps an operation error to the status answered to the browser.
func statusFor(err error) int {
	var apiErr *remote.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, remote.ErrMalformedResponse), errors.Is(err, remote.ErrUnknown):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// requireUser answers 401 when the request carries no stored identity.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	user, ok := h.currentUser(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{
			"error":    "User is not logged in",
			"redirect": middleware.LoginPath,
		})
		return domain.Identity{}, false
	}
	return user, true
}

// decodeJSON decodes a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// wantsJSON reports whether the request body is JSON rather than a form post.
func wantsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// redirect sends the browser to path: a 303 for form posts, JSON otherwise.
func redirect(w http.ResponseWriter, r *http.Request, path string, body map[string]any) {
	if !wantsJSON(r) {
		http.Redirect(w, r, path, http.StatusSeeOther)
		return
	}
	if body == nil {
		body = map[string]any{}
	}
	body["redirect"] = path
	JSON(w, http.StatusOK, body)
}
