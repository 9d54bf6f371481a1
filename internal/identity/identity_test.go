package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/agentdesk/internal/credentials"
	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareIssuesDeviceCookie(t *testing.T) {
	var channel string
	var store credentials.Store
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store = StoreFromContext(r.Context())
		channel = ChannelFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, store)
	var device *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == DeviceCookieName {
			device = c
		}
	}
	require.NotNil(t, device)
	require.True(t, device.HttpOnly)
	require.Equal(t, "device:"+device.Value, channel)
}

func TestMiddlewareKeepsValidDeviceCookie(t *testing.T) {
	const id = "6f1c0b8e-3d5a-4c2e-9a57-0e2b1d4f8c31"
	var got string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = DeviceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: id})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, id, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, "forged", got)
	require.True(t, isValidDeviceID(got))
}

func TestChannelFollowsLogin(t *testing.T) {
	h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		require.Contains(t, ChannelFromContext(ctx), "device:")

		StoreFromContext(ctx).Set(domain.TokenPair{AccessToken: "T1", RefreshToken: "R1"}, domain.Identity{UserID: "U1"})
		require.Equal(t, "user:U1", ChannelFromContext(ctx))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	require.Equal(t, "203.0.113.7", IPFromRequest(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	require.Equal(t, "2001:db8::1", IPFromRequest(req))

	// chi's RealIP middleware leaves a bare address.
	req.RemoteAddr = "198.51.100.2"
	require.Equal(t, "198.51.100.2", IPFromRequest(req))
}
