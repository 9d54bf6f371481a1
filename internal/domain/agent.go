package domain

import (
	"fmt"
	"strings"
)

// AgentStatusActive marks agents that can be purchased.
const AgentStatusActive = "active"

// Agent is a catalog entry.
type Agent struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// IsActive reports whether the agent is offered for purchase.
func (a Agent) IsActive() bool {
	return a.Status == AgentStatusActive
}

// Validate requires an id and a name.
func (a Agent) Validate() error {
	if a.ID == "" {
		return invalid("agent: _id is missing")
	}
	if a.Name == "" {
		return invalid(fmt.Sprintf("agent %s: name is missing", a.ID))
	}
	return nil
}

// AgentInput creates or updates a catalog agent.
type AgentInput struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
}

// Validate checks required fields.
func (in AgentInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("agent name is required")
	}
	return nil
}

// PurchasedAgent associates a company with a catalog agent under a plan.
type PurchasedAgent struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	CompanyID   string `json:"company_id"`
	AgentID     string `json:"agent_id"`
	Plan        string `json:"plan,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Period      int    `json:"period,omitempty"`
}

// Validate requires the association ids.
func (p PurchasedAgent) Validate() error {
	if p.ID == "" {
		return invalid("purchased agent: _id is missing")
	}
	return nil
}

// PurchasedAgentList is the body of GET /purchasedagents/withcompayid/:companyId.
type PurchasedAgentList struct {
	PurchasedAgents []PurchasedAgent `json:"purchasedAgents"`
}

// Validate validates every entry.
func (l PurchasedAgentList) Validate() error {
	for _, p := range l.PurchasedAgents {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Plan is a purchasable tier.
type Plan struct {
	Name          string
	Amount        string
	DefaultPeriod int
	Periods       []int
}

// Plans offered by the purchase drawer.
var (
	PlanFree       = Plan{Name: "free", Amount: "0.00", DefaultPeriod: 30, Periods: []int{30}}
	PlanEnterprise = Plan{Name: "enterprise", Amount: "10.00", DefaultPeriod: 30, Periods: []int{30, 60, 90}}
)

// LookupPlan returns the plan with the given name.
func LookupPlan(name string) (Plan, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PlanFree.Name:
		return PlanFree, true
	case PlanEnterprise.Name:
		return PlanEnterprise, true
	}
	return Plan{}, false
}

// AllowsPeriod reports whether period days can be bought under the plan.
func (p Plan) AllowsPeriod(period int) bool {
	for _, v := range p.Periods {
		if v == period {
			return true
		}
	}
	return false
}

// PurchaseRequest is the body of POST /purchasedagents[/withacount].
type PurchaseRequest struct {
	CompanyID string `json:"company_id"`
	Plan      string `json:"plan"`
	Amount    string `json:"amount"`
	Period    int    `json:"period"`
	AgentID   string `json:"agent_id"`
}

// NewPurchaseRequest prices a purchase from the plan catalog.
func NewPurchaseRequest(companyID, agentID string, plan Plan, period int) PurchaseRequest {
	if period == 0 {
		period = plan.DefaultPeriod
	}
	return PurchaseRequest{
		CompanyID: companyID,
		Plan:      plan.Name,
		Amount:    plan.Amount,
		Period:    period,
		AgentID:   agentID,
	}
}

// Validate checks the request against the plan catalog.
func (r PurchaseRequest) Validate() error {
	if r.CompanyID == "" {
		return invalid("company_id is required")
	}
	if r.AgentID == "" {
		return invalid("agent_id is required")
	}
	plan, ok := LookupPlan(r.Plan)
	if !ok {
		return invalid(fmt.Sprintf("unknown plan %q", r.Plan))
	}
	if !plan.AllowsPeriod(r.Period) {
		return invalid(fmt.Sprintf("plan %s does not offer a %d day period", plan.Name, r.Period))
	}
	return nil
}
