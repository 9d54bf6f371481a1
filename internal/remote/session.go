package remote

import (
	"context"

	"github.com/ashureev/agentdesk/internal/credentials"
)

// Session binds a Client to the credential store of one user. Each operation
// reads the current token from the store, so a refresh performed by one call
// is picked up by the next.
type Session struct {
	client *Client
	store  credentials.Store
}

// Session returns a Session over store.
func (c *Client) Session(store credentials.Store) *Session {
	return &Session{client: c, store: store}
}

// Store returns the credential store of the session.
func (s *Session) Store() credentials.Store {
	return s.store
}

// bearer returns the access token to send. A token past its declared expiry
// is refreshed first when a refresh token is available.
func (s *Session) bearer(ctx context.Context) (string, error) {
	creds, ok := s.store.Get()
	if !ok {
		return "", nil
	}
	if creds.AccessToken != "" && !creds.Expired(s.client.now()) {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		return creds.AccessToken, nil
	}
	pair, err := s.client.refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", err
	}
	s.store.UpdateTokens(pair)
	return pair.AccessToken, nil
}

// call performs an authorized request.
func (s *Session) call(ctx context.Context, method, path string, body, out any) error {
	token, err := s.bearer(ctx)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, s.store, Request{Method: method, Path: path, Body: body, Token: token}, out)
}

// callPublic performs a request without a bearer token.
func (s *Session) callPublic(ctx context.Context, method, path string, body, out any) error {
	return s.client.Do(ctx, s.store, Request{Method: method, Path: path, Body: body}, out)
}
