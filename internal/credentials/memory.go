package credentials

import (
	"sync"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

// MemoryStore is an in-process Store. Token pairs expire TokenTTL after they
// were written.
type MemoryStore struct {
	mu          sync.Mutex
	pair        domain.TokenPair
	identity    domain.Identity
	hasIdentity bool
	storedUntil time.Time
	now         func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Set stores a token pair and its identity.
func (s *MemoryStore) Set(pair domain.TokenPair, id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.identity = id
	s.hasIdentity = true
	s.storedUntil = s.now().Add(TokenTTL)
}

// Get returns the token pair unless it was cleared or has expired.
func (s *MemoryStore) Get() (domain.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked() {
		return domain.Credentials{}, false
	}
	return credentialsFor(s.pair.AccessToken, s.pair.RefreshToken, s.storedUntil)
}

// Identity returns the stored identity.
func (s *MemoryStore) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.hasIdentity
}

// UpdateTokens replaces the token pair.
func (s *MemoryStore) UpdateTokens(pair domain.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.storedUntil = s.now().Add(TokenTTL)
}

// Clear forgets everything.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = domain.TokenPair{}
	s.identity = domain.Identity{}
	s.hasIdentity = false
	s.storedUntil = time.Time{}
}

func (s *MemoryStore) expiredLocked() bool {
	return s.storedUntil.IsZero() || !s.now().Before(s.storedUntil)
}
