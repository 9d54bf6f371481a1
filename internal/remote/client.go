// Package remote talks to the agent platform REST API. Every call goes
// through Client.Do, which attaches the bearer token and transparently
// refreshes it once when the API answers 403.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/agentdesk/internal/credentials"
	"github.com/ashureev/agentdesk/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath = "/auth/token"

	fallbackRequest = "API request failed"
	fallbackRefresh = "Failed to refresh token"

	maxResponseSize = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client performs authenticated calls against the API.
type Client struct {
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
	refreshes singleflight.Group
	now       func() time.Time
}

// New creates a Client. Outbound requests are traced with otelhttp unless a
// custom HTTP client is supplied.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
		now:     time.Now,
	}
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	// Body is JSON encoded unless it is a *Multipart.
	Body any
	// Token is sent as a bearer token when non-empty.
	Token string
	// Fallback is the error message used when the response carries none.
	Fallback string
}

type payload struct {
	body        []byte
	contentType string
}

func (r Request) encode() (payload, error) {
	switch body := r.Body.(type) {
	case nil:
		return payload{}, nil
	case *Multipart:
		return body.encode()
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return payload{}, fmt.Errorf("encode %s %s body: %w", r.Method, r.Path, err)
		}
		return payload{body: b, contentType: "application/json"}, nil
	}
}

// Do sends req and decodes a success body into out (which may be nil).
//
// On a 403 the refresh token is read from store and exchanged for a new pair
// through the bare refresh path; the pair is persisted and the call is retried
// exactly once with the new access token. Callers must re-read the store for
// later calls instead of reusing req.Token.
func (c *Client) Do(ctx context.Context, store credentials.Store, req Request, out any) error {
	p, err := req.encode()
	if err != nil {
		return err
	}

	status, body, err := c.send(ctx, req.Method, req.Path, p, req.Token)
	if err != nil {
		return err
	}

	if status == http.StatusForbidden {
		refreshToken := ""
		if store != nil {
			if creds, ok := store.Get(); ok {
				refreshToken = creds.RefreshToken
			}
		}
		if refreshToken == "" {
			c.logger.Warn("access denied and no refresh token stored", "method", req.Method, "path", req.Path)
			return ErrNoRefreshToken
		}

		pair, err := c.refresh(ctx, refreshToken)
		if err != nil {
			return err
		}
		store.UpdateTokens(pair)

		status, body, err = c.send(ctx, req.Method, req.Path, p, pair.AccessToken)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		fallback := req.Fallback
		if fallback == "" {
			fallback = fallbackRequest
		}
		return &APIError{Status: status, Message: errorMessage(body, fallback)}
	}

	return decode(body, out)
}

// refresh exchanges a refresh token for a new pair. Concurrent refreshes of
// the same token share one call to the API. The shared call is not tied to
// the context of the caller that started it, so one aborted request cannot
// fail the others; each caller still stops waiting when its own ctx ends.
func (c *Client) refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	ch := c.refreshes.DoChan(refreshToken, func() (any, error) {
		return c.refreshBare(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case <-ctx.Done():
		return domain.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.TokenPair{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("joined in-flight token refresh")
		}
		return res.Val.(domain.TokenPair), nil
	}
}

// refreshBare calls the refresh endpoint directly. It never goes through Do,
// so a 403 from the endpoint cannot trigger another refresh.
func (c *Client) refreshBare(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	p, err := Request{Method: http.MethodPost, Path: refreshPath, Body: map[string]string{"token": refreshToken}}.encode()
	if err != nil {
		return domain.TokenPair{}, err
	}

	// A transport failure says nothing about the refresh token, so it is not
	// a RefreshError and the stored credentials stay.
	status, body, err := c.send(ctx, http.MethodPost, refreshPath, p, "")
	if err != nil {
		c.logger.Warn("token refresh did not reach the API", "error", err)
		return domain.TokenPair{}, fmt.Errorf("refresh token: %w", err)
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("token refresh rejected", "status", status)
		return domain.TokenPair{}, &RefreshError{Status: status, Message: errorMessage(body, fallbackRefresh)}
	}

	var pair domain.TokenPair
	if err := decode(body, &pair); err != nil {
		return domain.TokenPair{}, &RefreshError{Status: status, Message: fallbackRefresh, Err: err}
	}
	c.logger.Info("access token refreshed")
	return pair, nil
}

func (c *Client) send(ctx context.Context, method, path string, p payload, token string) (int, []byte, error) {
	var reader io.Reader
	if p.body != nil {
		reader = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUnknown, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"authorized", token != "",
		"duration", time.Since(start),
	)
	return resp.StatusCode, body, nil
}

// errorMessage extracts the "message" field of an error body.
func errorMessage(body []byte, fallback string) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallback
}

type validator interface {
	Validate() error
}

// decode unmarshals a success body and validates it when the target knows how.
func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return nil
}

func validateAll[T validator](items []T) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return nil
}
