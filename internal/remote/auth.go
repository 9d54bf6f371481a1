package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ashureev/agentdesk/internal/domain"
)

// Login authenticates and stores the issued credentials with the user's identity.
func (s *Session) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp domain.LoginResponse
	if err := s.callPublic(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	s.store.Set(resp.Tokens(), resp.User)
	return &resp, nil
}

// Register creates a user. Credentials are stored when the API also logs the
// new user in.
func (s *Session) Register(ctx context.Context, req domain.UserRegistration) (*domain.RegistrationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp domain.RegistrationResult
	if err := s.callPublic(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.HasTokens() {
		s.store.Set(domain.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, resp.User)
	}
	return &resp, nil
}

// RegisterCompany creates a company and its admin user without authorization.
func (s *Session) RegisterCompany(ctx context.Context, req domain.CompanyRegistration) (*domain.Company, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var company domain.Company
	if err := s.callPublic(ctx, http.MethodPost, "/company", req, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// RefreshToken exchanges the stored refresh token for a new pair and stores it.
func (s *Session) RefreshToken(ctx context.Context) (domain.TokenPair, error) {
	creds, ok := s.store.Get()
	if !ok || creds.RefreshToken == "" {
		return domain.TokenPair{}, ErrNoRefreshToken
	}
	pair, err := s.client.refresh(ctx, creds.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	s.store.UpdateTokens(pair)
	return pair, nil
}

// Logout revokes the refresh token and always clears local credentials.
func (s *Session) Logout(ctx context.Context) error {
	defer s.store.Clear()

	creds, ok := s.store.Get()
	if !ok {
		return nil
	}
	body := map[string]string{"token": creds.RefreshToken}
	if err := s.call(ctx, http.MethodPost, "/auth/logout", body, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
