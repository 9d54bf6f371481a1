package view

import (
	"context"
	"sync"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
)

const msgAgentsLoadFailed = "Failed to load agents"

// AgentLister lists the agent catalog.
type AgentLister interface {
	GetAgents(ctx context.Context) ([]domain.Agent, error)
}

// PurchasedLister lists the agents a company owns.
type PurchasedLister interface {
	GetPurchasedAgents(ctx context.Context, companyID string) ([]domain.PurchasedAgent, error)
}

// Catalog shows the agents that can be purchased.
type Catalog struct {
	svc    AgentLister
	notify Notifier

	mu     sync.Mutex
	status Status
	agents []domain.Agent
}

// NewCatalog returns an idle catalog.
func NewCatalog(svc AgentLister, n Notifier) *Catalog {
	return &Catalog{svc: svc, notify: notifierOrNop(n), status: idle()}
}

// Load fetches the catalog and keeps only active agents.
func (c *Catalog) Load(ctx context.Context) error {
	c.setStatus(loading())
	all, err := c.svc.GetAgents(ctx)
	if err != nil {
		st := failed(err)
		c.setStatus(st)
		c.notify.Notify(notify.KindError, msgAgentsLoadFailed, st.Message)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = ActiveAgents(all)
	c.status = succeeded("")
	return nil
}

// Agents returns the loaded active agents.
func (c *Catalog) Agents() []domain.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Agent{}, c.agents...)
}

// Find returns the active agent with id.
func (c *Catalog) Find(id string) (domain.Agent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.agents {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Agent{}, false
}

// Status returns the load status.
func (c *Catalog) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Catalog) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// ActiveAgents filters agents down to those with status "active".
func ActiveAgents(agents []domain.Agent) []domain.Agent {
	out := make([]domain.Agent, 0, len(agents))
	for _, a := range agents {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// PurchasedAgents loads the agents owned by the user's company.
func PurchasedAgents(ctx context.Context, svc PurchasedLister, n Notifier, user domain.Identity) ([]domain.PurchasedAgent, Status, error) {
	n = notifierOrNop(n)
	if user.CompanyID == "" {
		return nil, failed(ErrNotLoggedIn), ErrNotLoggedIn
	}
	agents, err := svc.GetPurchasedAgents(ctx, user.CompanyID)
	if err != nil {
		st := failed(err)
		n.Notify(notify.KindError, msgAgentsLoadFailed, st.Message)
		return nil, st, err
	}
	return agents, succeeded(""), nil
}
