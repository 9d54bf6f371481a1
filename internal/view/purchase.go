package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
)

// ManageAgentsPath is where a successful purchase navigates.
const ManageAgentsPath = "/agents/manage"

const (
	msgPurchased      = "Agent purchased successfully"
	msgPurchaseFailed = "Failed to purchase agent"
)

// Purchaser buys an agent for the logged-in company.
type Purchaser interface {
	PurchaseAgentWithAccount(ctx context.Context, req domain.PurchaseRequest) (*domain.PurchasedAgent, error)
}

// PurchaseState is a snapshot of the drawer.
type PurchaseState struct {
	Status   Status `json:"status"`
	AgentID  string `json:"agent_id"`
	Period   int    `json:"period"`
	Periods  []int  `json:"periods"`
	Redirect string `json:"redirect,omitempty"`
}

// PurchaseDrawer offers the free and enterprise plans for one agent.
type PurchaseDrawer struct {
	svc    Purchaser
	notify Notifier
	user   domain.Identity
	agent  domain.Agent

	mu       sync.Mutex
	status   Status
	period   int
	redirect string
}

// NewPurchaseDrawer returns a drawer for agent with the default enterprise period.
func NewPurchaseDrawer(svc Purchaser, n Notifier, user domain.Identity, agent domain.Agent) *PurchaseDrawer {
	return &PurchaseDrawer{
		svc:    svc,
		notify: notifierOrNop(n),
		user:   user,
		agent:  agent,
		status: idle(),
		period: domain.PlanEnterprise.DefaultPeriod,
	}
}

// SelectPeriod sets the enterprise period in days.
func (p *PurchaseDrawer) SelectPeriod(days int) error {
	if !domain.PlanEnterprise.AllowsPeriod(days) {
		return fmt.Errorf("%w: %d days", domain.ErrInvalid, days)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.period = days
	return nil
}

// Purchase buys the agent under plan and returns the path to navigate to.
func (p *PurchaseDrawer) Purchase(ctx context.Context, plan domain.Plan) (string, error) {
	if p.user.CompanyID == "" {
		p.setStatus(failed(ErrNotLoggedIn))
		return "", ErrNotLoggedIn
	}

	p.mu.Lock()
	period := plan.DefaultPeriod
	if plan.Name == domain.PlanEnterprise.Name {
		period = p.period
	}
	p.status = loading()
	p.redirect = ""
	p.mu.Unlock()

	req := domain.NewPurchaseRequest(p.user.CompanyID, p.agent.ID, plan, period)
	if _, err := p.svc.PurchaseAgentWithAccount(ctx, req); err != nil {
		st := failed(err)
		p.setStatus(st)
		p.notify.Notify(notify.KindError, msgPurchaseFailed, st.Message)
		return "", err
	}

	p.mu.Lock()
	p.status = succeeded(msgPurchased)
	p.redirect = ManageAgentsPath
	p.mu.Unlock()
	p.notify.Notify(notify.KindSuccess, msgPurchased, p.agent.Name)
	return ManageAgentsPath, nil
}

// State returns a snapshot of the drawer.
func (p *PurchaseDrawer) State() PurchaseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PurchaseState{
		Status:   p.status,
		AgentID:  p.agent.ID,
		Period:   p.period,
		Periods:  append([]int(nil), domain.PlanEnterprise.Periods...),
		Redirect: p.redirect,
	}
}

func (p *PurchaseDrawer) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}
