package api

import (
	"net/http"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/view"
	"github.com/go-chi/chi/v5"
)

// ListAgents returns the purchasable (active) agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	catalog := view.NewCatalog(h.session(r), h.notifier(r))
	if err := catalog.Load(r.Context()); err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, catalog.Agents())
}

// CreateAgent adds an agent to the catalog.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var in domain.AgentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	agent, err := h.session(r).CreateAgent(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "Failed to create agent")
		return
	}
	h.notifier(r).Notify(notify.KindSuccess, "Agent created successfully", agent.Name)
	JSON(w, http.StatusCreated, agent)
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.session(r).GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, agent)
}

// UpdateAgent edits one agent.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var in domain.AgentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	agent, err := h.session(r).UpdateAgent(r.Context(), chi.URLParam(r, "agentID"), in)
	if err != nil {
		h.fail(w, r, err, "Failed to update agent")
		return
	}
	h.notifier(r).Notify(notify.KindSuccess, "Agent updated successfully", agent.Name)
	JSON(w, http.StatusOK, agent)
}

type purchaseBody struct {
	Plan   string `json:"plan"`
	Period int    `json:"period"`
}

// PurchaseAgent buys an active agent for the user's company.
func (h *Handler) PurchaseAgent(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	plan, ok := domain.LookupPlan(body.Plan)
	if !ok {
		Error(w, http.StatusBadRequest, "unknown plan")
		return
	}

	sess := h.session(r)
	agent, err := sess.GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if !agent.IsActive() {
		Error(w, http.StatusConflict, "agent is not available for purchase")
		return
	}

	drawer := view.NewPurchaseDrawer(sess, h.notifier(r), user, *agent)
	if body.Period != 0 && plan.Name == domain.PlanEnterprise.Name {
		if err := drawer.SelectPeriod(body.Period); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if _, err := drawer.Purchase(r.Context(), plan); err != nil {
		h.failWith(w, r, err, "", map[string]any{"state": drawer.State()})
		return
	}
	JSON(w, http.StatusOK, drawer.State())
}

// ListPurchasedAgents returns the agents owned by the user's company.
func (h *Handler) ListPurchasedAgents(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	agents, _, err := view.PurchasedAgents(r.Context(), h.session(r), h.notifier(r), user)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	JSON(w, http.StatusOK, domain.PurchasedAgentList{PurchasedAgents: agents})
}
