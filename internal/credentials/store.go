// Package credentials keeps the access/refresh token pair and the logged-in
// identity. Stores never fail loudly: storage problems are logged and read
// back as "absent".
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

// TokenTTL is how long a stored token pair is kept.
const TokenTTL = 24 * time.Hour

// ErrMalformedIdentity is logged when a stored identity cannot be decoded.
var ErrMalformedIdentity = errors.New("malformed identity")

// Store holds the credentials of one user.
type Store interface {
	// Set stores a token pair and the identity it belongs to.
	Set(pair domain.TokenPair, id domain.Identity)

	// Get returns the stored credentials, if any.
	Get() (domain.Credentials, bool)

	// Identity returns the stored identity, if any.
	Identity() (domain.Identity, bool)

	// UpdateTokens replaces the token pair after a refresh and keeps the identity.
	UpdateTokens(pair domain.TokenPair)

	// Clear removes the token pair and the identity.
	Clear()
}

func credentialsFor(access, refresh string, storedUntil time.Time) (domain.Credentials, bool) {
	if access == "" && refresh == "" {
		return domain.Credentials{}, false
	}
	exp := ExpiryOf(access)
	if exp.IsZero() {
		exp = storedUntil
	}
	return domain.Credentials{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, true
}

func encodeIdentity(id domain.Identity) (string, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode identity: %w", err)
	}
	return string(b), nil
}

func decodeIdentity(raw string) (domain.Identity, error) {
	var id domain.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}
	return id, nil
}

var (
	_ Store = (*CookieStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
