// Package identity attaches per-request credentials and a notification
// channel to the request context.
package identity

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ashureev/agentdesk/internal/credentials"
	"github.com/google/uuid"
)

const (
	DeviceCookieName   = "agentdesk_device"
	deviceCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	storeKey contextKey = iota
	deviceIDKey
)

// StoreFromContext returns the credential store bound to the request. It is
// nil outside of Middleware.
func StoreFromContext(ctx context.Context) credentials.Store {
	if v, ok := ctx.Value(storeKey).(credentials.Store); ok {
		return v
	}
	return nil
}

// DeviceIDFromContext returns the anonymous device id of the request.
func DeviceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey).(string); ok {
		return v
	}
	return ""
}

// ChannelFromContext returns the notification channel of the request: the
// logged-in user when the store holds an identity, the device otherwise. It
// reads the store on every call so a login earlier in the same request is
// reflected.
func ChannelFromContext(ctx context.Context) string {
	if store := StoreFromContext(ctx); store != nil {
		if id, ok := store.Identity(); ok && id.UserID != "" {
			return "user:" + id.UserID
		}
	}
	if dev := DeviceIDFromContext(ctx); dev != "" {
		return "device:" + dev
	}
	return "device:unknown"
}

// WithStore returns a context carrying store. Used by tests and by callers
// that build a store outside of Middleware.
func WithStore(ctx context.Context, store credentials.Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

func isValidDeviceID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func getOrCreateDeviceID(w http.ResponseWriter, r *http.Request, secure bool) string {
	id := ""
	if c, err := r.Cookie(DeviceCookieName); err == nil && isValidDeviceID(c.Value) {
		id = c.Value
	} else {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(deviceCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id
}

// Middleware binds a cookie credential store and a device id to every request.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := getOrCreateDeviceID(w, r, secure)
			store := credentials.NewCookieStore(w, r, secure)

			ctx := WithStore(r.Context(), store)
			ctx = context.WithValue(ctx, deviceIDKey, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request logging.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
