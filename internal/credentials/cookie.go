package credentials

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

// Cookie names shared with the frontend.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	IdentityCookie     = "loggedUserInfo"
)

// CookieStore keeps credentials in cookies of a single HTTP exchange. Cookies
// written during the exchange are visible to later reads through the same
// store.
type CookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	secure  bool
	now     func() time.Time
	encode  func(domain.Identity) (string, error)
	written map[string]*http.Cookie
}

// NewCookieStore binds a store to one request/response pair. Secure cookies
// should be requested in production.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		secure:  secure,
		now:     time.Now,
		encode:  encodeIdentity,
		written: make(map[string]*http.Cookie),
	}
}

// Set writes all three cookies, or none when the identity cannot be encoded.
func (s *CookieStore) Set(pair domain.TokenPair, id domain.Identity) {
	raw, err := s.encode(id)
	if err != nil {
		slog.Warn("failed to store credential cookies", "error", err)
		return
	}

	s.UpdateTokens(pair)
	s.write(&http.Cookie{
		Name:     IdentityCookie,
		Value:    url.QueryEscape(raw),
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secure,
	})
}

// Get reads the token cookies.
func (s *CookieStore) Get() (domain.Credentials, bool) {
	return credentialsFor(s.value(AccessTokenCookie), s.value(RefreshTokenCookie), time.Time{})
}

// Identity decodes the identity cookie. A malformed cookie reads as absent.
func (s *CookieStore) Identity() (domain.Identity, bool) {
	raw := s.value(IdentityCookie)
	if raw == "" {
		return domain.Identity{}, false
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	id, err := decodeIdentity(raw)
	if err != nil {
		slog.Warn("ignoring identity cookie", "error", err)
		return domain.Identity{}, false
	}
	return id, true
}

// UpdateTokens rewrites the token cookies with a fresh one day expiry.
func (s *CookieStore) UpdateTokens(pair domain.TokenPair) {
	expires := s.now().Add(TokenTTL)
	for name, value := range map[string]string{
		AccessTokenCookie:  pair.AccessToken,
		RefreshTokenCookie: pair.RefreshToken,
	} {
		s.write(&http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(TokenTTL.Seconds()),
			Expires:  expires,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   s.secure,
		})
	}
}

// Clear expires all three cookies.
func (s *CookieStore) Clear() {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, IdentityCookie} {
		s.write(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name != IdentityCookie,
			SameSite: http.SameSiteStrictMode,
			Secure:   s.secure,
		})
	}
}

func (s *CookieStore) write(c *http.Cookie) {
	s.written[c.Name] = c
	http.SetCookie(s.w, c)
}

func (s *CookieStore) value(name string) string {
	if c, ok := s.written[name]; ok {
		if c.MaxAge < 0 {
			return ""
		}
		return c.Value
	}
	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
