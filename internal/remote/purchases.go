package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashureev/agentdesk/internal/domain"
)

// PurchaseAgent buys an agent without an account token.
func (s *Session) PurchaseAgent(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchasedAgent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var purchased domain.PurchasedAgent
	if err := s.callPublic(ctx, http.MethodPost, "/purchasedagents", req, &purchased); err != nil {
		return nil, err
	}
	return &purchased, nil
}

// PurchaseAgentWithAccount buys an agent for the logged-in company.
func (s *Session) PurchaseAgentWithAccount(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchasedAgent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var purchased domain.PurchasedAgent
	if err := s.call(ctx, http.MethodPost, "/purchasedagents/withacount", req, &purchased); err != nil {
		return nil, err
	}
	return &purchased, nil
}

// GetPurchasedAgents lists the agents a company owns.
func (s *Session) GetPurchasedAgents(ctx context.Context, companyID string) ([]domain.PurchasedAgent, error) {
	var list domain.PurchasedAgentList
	if err := s.call(ctx, http.MethodGet, "/purchasedagents/withcompayid/"+url.PathEscape(companyID), nil, &list); err != nil {
		return nil, err
	}
	if list.PurchasedAgents == nil {
		return []domain.PurchasedAgent{}, nil
	}
	return list.PurchasedAgents, nil
}
