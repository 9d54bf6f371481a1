package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/agentdesk/internal/credentials"
)

// LoginPath is where unauthenticated navigation is sent.
const LoginPath = "/login"

// Decision is the outcome of a route guard check.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard gates navigation on the presence of an access token cookie. It does
// not verify the token; the API rejects stale tokens and the request client
// refreshes them.
type Guard struct {
	PublicPaths    []string
	StaticPrefixes []string
	Logger         *slog.Logger
}

// NewGuard returns a Guard with the default public paths and asset prefixes.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		PublicPaths:    []string{"/", "/login", "/register"},
		StaticPrefixes: []string{"/static/", "/assets/", "/_next/", "/favicon.ico"},
		Logger:         logger,
	}
}

// Decide returns whether path may be served.
func (g *Guard) Decide(path string, hasToken bool) Decision {
	for _, p := range g.PublicPaths {
		if path == p {
			return Decision{Allow: true}
		}
	}
	for _, p := range g.StaticPrefixes {
		if strings.HasPrefix(path, p) {
			return Decision{Allow: true}
		}
	}
	if hasToken {
		return Decision{Allow: true}
	}
	return Decision{Redirect: LoginPath}
}

// Middleware redirects requests for protected paths that carry no access token.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r.URL.Path, hasAccessToken(r))
		if !d.Allow {
			g.Logger.Debug("redirecting unauthenticated request", "path", r.URL.Path)
			http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hasAccessToken checks presence only; the API judges the token itself.
func hasAccessToken(r *http.Request) bool {
	_, err := r.Cookie(credentials.AccessTokenCookie)
	return err == nil
}
