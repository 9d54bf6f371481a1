// Package domain contains the payload types exchanged with the agent platform API.
package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid payload")

func invalid(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrInvalid }

// TokenPair is the access/refresh pair issued by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Validate checks that both tokens are present.
func (p TokenPair) Validate() error {
	if strings.TrimSpace(p.AccessToken) == "" {
		return invalid("token pair: accessToken is required")
	}
	if strings.TrimSpace(p.RefreshToken) == "" {
		return invalid("token pair: refreshToken is required")
	}
	return nil
}

// Credentials is what a credential store hands back.
// A zero ExpiresAt means the access token's expiry is unknown.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past its declared expiry.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Identity is the logged-in user as returned by login and registration.
type Identity struct {
	UserID    string `json:"id,omitempty"`
	CompanyID string `json:"Company_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// IsZero reports whether no identity field is set.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return invalid("email and password are required")
	}
	return nil
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         Identity `json:"user"`
}

// Tokens returns the token pair of the response.
func (r LoginResponse) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// Validate checks that the server returned a usable token pair.
func (r LoginResponse) Validate() error {
	return r.Tokens().Validate()
}

// UserRegistration is the body of POST /auth/register.
type UserRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Validate checks required fields.
func (r UserRegistration) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return invalid("name is required")
	case strings.TrimSpace(r.Email) == "":
		return invalid("email is required")
	case r.Password == "":
		return invalid("password is required")
	case strings.TrimSpace(r.Role) == "":
		return invalid("role is required")
	}
	return nil
}

// RegistrationResult is returned by POST /auth/register. Tokens are optional;
// when the server issues them the caller is logged in straight away.
type RegistrationResult struct {
	Message      string   `json:"message,omitempty"`
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	User         Identity `json:"user"`
}

// HasTokens reports whether the registration also logged the user in.
func (r RegistrationResult) HasTokens() bool {
	return r.AccessToken != "" && r.RefreshToken != ""
}

// Validate requires an identifiable user.
func (r RegistrationResult) Validate() error {
	if r.User.UserID == "" && r.User.Email == "" {
		return invalid("registration: user is missing")
	}
	return nil
}
