package domain

import "strings"

// SupportQuery is a sample question attached to a purchased agent.
type SupportQuery struct {
	ID               string `json:"_id"`
	Text             string `json:"query"`
	CompanyID        string `json:"company_id,omitempty"`
	AgentID          string `json:"agent_id,omitempty"`
	PurchasedAgentID string `json:"purchased_agent_id,omitempty"`
}

// Validate requires an id.
func (q SupportQuery) Validate() error {
	if q.ID == "" {
		return invalid("support query: _id is missing")
	}
	return nil
}

// SupportQueryInput creates a support query.
type SupportQueryInput struct {
	Text             string `json:"query"`
	CompanyID        string `json:"company_id"`
	AgentID          string `json:"agent_id"`
	PurchasedAgentID string `json:"purchased_agent_id"`
}

// Validate checks required fields.
func (in SupportQueryInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return invalid("query text is required")
	}
	if in.PurchasedAgentID == "" {
		return invalid("purchased_agent_id is required")
	}
	return nil
}

// SupportQueryUpdate is the body of a support query update.
type SupportQueryUpdate struct {
	Text string `json:"query"`
}
