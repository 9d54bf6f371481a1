package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashureev/agentdesk/internal/domain"
)

// CreateAgent adds an agent to the catalog.
func (s *Session) CreateAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var agent domain.Agent
	if err := s.call(ctx, http.MethodPost, "/agents", in, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// GetAgents lists the catalog.
func (s *Session) GetAgents(ctx context.Context) ([]domain.Agent, error) {
	var agents []domain.Agent
	if err := s.call(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	if err := validateAll(agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent fetches one catalog agent.
func (s *Session) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.call(ctx, http.MethodGet, "/agents/"+url.PathEscape(agentID), nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent edits a catalog agent.
func (s *Session) UpdateAgent(ctx context.Context, agentID string, in domain.AgentInput) (*domain.Agent, error) {
	var agent domain.Agent
	if err := s.call(ctx, http.MethodPut, "/agents/"+url.PathEscape(agentID), in, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}
