package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashureev/agentdesk/internal/domain"
)

const queriesPath = "/customersupportqueries"

// ListQueries returns the support queries of a purchased agent.
func (s *Session) ListQueries(ctx context.Context, purchasedAgentID string) ([]domain.SupportQuery, error) {
	var queries []domain.SupportQuery
	path := queriesPath + "/purchasedagent/" + url.PathEscape(purchasedAgentID)
	if err := s.call(ctx, http.MethodGet, path, nil, &queries); err != nil {
		return nil, err
	}
	if queries == nil {
		return []domain.SupportQuery{}, nil
	}
	if err := validateAll(queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// CreateQuery adds a support query.
func (s *Session) CreateQuery(ctx context.Context, in domain.SupportQueryInput) (*domain.SupportQuery, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var query domain.SupportQuery
	if err := s.call(ctx, http.MethodPost, queriesPath, in, &query); err != nil {
		return nil, err
	}
	return &query, nil
}

// UpdateQuery replaces the text of a support query.
func (s *Session) UpdateQuery(ctx context.Context, queryID, text string) (*domain.SupportQuery, error) {
	var query domain.SupportQuery
	body := domain.SupportQueryUpdate{Text: text}
	if err := s.call(ctx, http.MethodPut, queriesPath+"/"+url.PathEscape(queryID), body, &query); err != nil {
		return nil, err
	}
	return &query, nil
}

// DeleteQuery removes a support query.
func (s *Session) DeleteQuery(ctx context.Context, queryID string) error {
	return s.call(ctx, http.MethodDelete, queriesPath+"/"+url.PathEscape(queryID), nil, nil)
}
