package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/agentdesk/internal/config"
	"github.com/ashureev/agentdesk/internal/credentials"
	"github.com/ashureev/agentdesk/internal/identity"
	"github.com/ashureev/agentdesk/internal/middleware"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/remote"
	"github.com/stretchr/testify/require"
)

const testDevice = "0b7f3c52-9f0e-4d8a-b1a2-3c4d5e6f7a8b"

type testServer struct {
	upstream *http.ServeMux
	hub      *notify.Hub
	router   http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	upstream := http.NewServeMux()
	api := httptest.NewServer(upstream)
	t.Cleanup(api.Close)

	cfg := &config.Config{
		Port:   "0",
		APIURL: api.URL,
		Env:    "development",
		Notify: config.NotifyConfig{
			ToastLimit:        1,
			QueueSize:         10,
			KeepaliveInterval: time.Minute,
			RetryDelay:        time.Second,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := notify.NewHub(notify.Config{Limit: cfg.Notify.ToastLimit, QueueSize: cfg.Notify.QueueSize, Logger: logger})
	t.Cleanup(hub.Close)

	client := remote.New(remote.Config{BaseURL: api.URL, HTTPClient: api.Client(), Logger: logger})
	h := NewHandler(client, hub, cfg, logger)
	spa := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>app</html>")
	})

	return &testServer{
		upstream: upstream,
		hub:      hub,
		router:   NewRouter(h, middleware.NewGuard(logger), spa),
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// loggedIn adds the cookies a logged-in browser would send.
func loggedIn(req *http.Request, withRefresh bool) *http.Request {
	req.AddCookie(&http.Cookie{Name: identity.DeviceCookieName, Value: testDevice})
	req.AddCookie(&http.Cookie{Name: credentials.AccessTokenCookie, Value: "T1"})
	if withRefresh {
		req.AddCookie(&http.Cookie{Name: credentials.RefreshTokenCookie, Value: "R1"})
	}
	req.AddCookie(&http.Cookie{
		Name:  credentials.IdentityCookie,
		Value: url.QueryEscape(`{"id":"U1","Company_id":"C1"}`),
	})
	return req
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"foo":"bar"}`, w.Body.String())
}

func TestLoginSetsCookiesAndRedirects(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@b.com", body["email"])
		require.Equal(t, "x", body["password"])
		_, _ = io.WriteString(w, `{"accessToken":"T1","refreshToken":"R1","user":{"Company_id":"C1"}}`)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/dashboard", decodeBody(t, rec)["redirect"])

	cookies := cookieMap(rec)
	require.Equal(t, "T1", cookies[credentials.AccessTokenCookie].Value)
	require.Equal(t, "R1", cookies[credentials.RefreshTokenCookie].Value)
	require.Equal(t, http.SameSiteStrictMode, cookies[credentials.AccessTokenCookie].SameSite)
	require.Equal(t, 86400, cookies[credentials.AccessTokenCookie].MaxAge)
	raw, err := url.QueryUnescape(cookies[credentials.IdentityCookie].Value)
	require.NoError(t, err)
	require.JSONEq(t, `{"Company_id":"C1"}`, raw)
}

func TestLoginFormRedirectsToDashboard(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"accessToken":"T1","refreshToken":"R1","user":{"id":"U1","Company_id":"C1"}}`)
	})

	form := url.Values{"email": {"a@b.com"}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.Len(t, cookieMap(rec), 4) // three credentials plus the device cookie
}

func TestLoginRejected(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
	_, ok := cookieMap(rec)[credentials.AccessTokenCookie]
	require.False(t, ok)
}

func TestGuardProtectsPages(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/agents/manage", nil), true))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "app")
}

func TestListQueriesEmptyState(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/customersupportqueries/purchasedagent/P1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/api/purchased-agents/P1/queries", nil), true))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["empty"])
	require.Equal(t, "success", body["status"].(map[string]any)["phase"])
	require.Empty(t, s.hub.Active("user:U1"))
}

func TestDeleteMissingQueryKeepsList(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/customersupportqueries/purchasedagent/P1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"_id":"Q1","query":"How do I reset?"},{"_id":"Q2","query":"Refunds?"}]`)
	})
	s.upstream.HandleFunc("/customersupportqueries/Q404", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Query not found"}`)
	})

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodDelete, "/api/purchased-agents/P1/queries/Q404", nil), true))
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "Query not found", body["error"])
	state := body["state"].(map[string]any)
	require.Len(t, state["queries"], 2)

	active := s.hub.Active("user:U1")
	require.Len(t, active, 1)
	require.Equal(t, notify.KindError, active[0].Kind)
	require.Equal(t, "Failed to delete query", active[0].Title)
}

func TestAuthFailureClearsSession(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/api/agents", nil), false))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "/login", decodeBody(t, rec)["redirect"])

	cookies := cookieMap(rec)
	for _, name := range []string{credentials.AccessTokenCookie, credentials.RefreshTokenCookie, credentials.IdentityCookie} {
		require.Contains(t, cookies, name)
		require.Negative(t, cookies[name].MaxAge, name)
	}
}

func TestRefreshRotatesCookies(t *testing.T) {
	s := newTestServer(t)
	calls := 0
	s.upstream.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, `[{"_id":"A1","name":"Helper","status":"active"},{"_id":"A2","name":"Old","status":"retired"}]`)
	})
	s.upstream.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"accessToken":"T2","refreshToken":"R2"}`)
	})

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/api/agents", nil), true))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)

	var agents []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	require.Len(t, agents, 1)

	cookies := cookieMap(rec)
	require.Equal(t, "T2", cookies[credentials.AccessTokenCookie].Value)
	require.Equal(t, "R2", cookies[credentials.RefreshTokenCookie].Value)
}

func TestRefreshTransportFailureKeepsSession(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	s.upstream.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/api/agents", nil), true))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "An unknown error occurred.", body["error"])
	require.NotContains(t, body, "redirect")

	for _, c := range rec.Result().Cookies() {
		require.NotEqual(t, credentials.AccessTokenCookie, c.Name)
		require.NotEqual(t, credentials.RefreshTokenCookie, c.Name)
		require.NotEqual(t, credentials.IdentityCookie, c.Name)
	}
}

func TestUploadDocument(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "U1", r.FormValue("user_id"))
		require.Equal(t, "C1", r.FormValue("company_id"))
		_, _ = io.WriteString(w, `{"message":"stored"}`)
	})

	newUpload := func(consent string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("document", "guide.pdf")
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF-1.7 body"))
		if consent != "" {
			require.NoError(t, mw.WriteField("consent", consent))
		}
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return loggedIn(req, true)
	}

	rec := s.do(newUpload(""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(newUpload("on"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Document uploaded successfully", s.hub.Active("user:U1")[0].Title)
}

func TestLogoutClearsCookies(t *testing.T) {
	s := newTestServer(t)
	s.upstream.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s.hub.Publish("user:U1", notify.KindInfo, "stale", "")

	req := loggedIn(httptest.NewRequest(http.MethodPost, "/logout", nil), true)
	rec := s.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	require.Negative(t, cookieMap(rec)[credentials.AccessTokenCookie].MaxAge)
	require.Empty(t, s.hub.Active("user:U1"))
}

func TestStreamNotifications(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: identity.DeviceCookieName, Value: testDevice})
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	require.Equal(t, "retry: 1000", readUntil("retry:"))
	readUntil("event: connected")

	toast := s.hub.Publish("device:"+testDevice, notify.KindSuccess, "Query added successfully", "")
	require.Equal(t, "event: toast", readUntil("event:"))
	data := strings.TrimPrefix(readUntil("data:"), "data: ")

	var ev notify.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	require.Equal(t, toast.ID, ev.Toast.ID)
}

func TestDismissNotification(t *testing.T) {
	s := newTestServer(t)
	toast := s.hub.Publish("user:U1", notify.KindInfo, "hello", "")

	rec := s.do(loggedIn(httptest.NewRequest(http.MethodGet, "/api/notifications", nil), true))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), toast.ID)

	rec = s.do(loggedIn(httptest.NewRequest(http.MethodDelete, "/api/notifications/"+toast.ID, nil), true))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(loggedIn(httptest.NewRequest(http.MethodDelete, "/api/notifications/"+toast.ID, nil), true))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
