package api

import (
	"errors"
	"net/http"

	"github.com/ashureev/agentdesk/internal/view"
	"github.com/go-chi/chi/v5"
)

// queryTable loads the query table of the purchased agent in the URL. It
// writes the failure response and returns nil when loading fails.
func (h *Handler) queryTable(w http.ResponseWriter, r *http.Request, agentID string) *view.QueryTable {
	user, ok := h.requireUser(w, r)
	if !ok {
		return nil
	}
	table := view.NewQueryTable(h.session(r), h.notifier(r), view.QueryTarget{
		PurchasedAgentID: chi.URLParam(r, "purchasedAgentID"),
		CompanyID:        user.CompanyID,
		AgentID:          agentID,
	})
	if err := table.Load(r.Context()); err != nil {
		h.failWith(w, r, err, "", map[string]any{"state": table.State()})
		return nil
	}
	return table
}

// ListQueries returns the table state. An empty list is reported with
// "empty": true and a success phase.
func (h *Handler) ListQueries(w http.ResponseWriter, r *http.Request) {
	table := h.queryTable(w, r, r.URL.Query().Get("agent_id"))
	if table == nil {
		return
	}
	JSON(w, http.StatusOK, table.State())
}

type queryBody struct {
	Query   string `json:"query"`
	AgentID string `json:"agent_id,omitempty"`
}

// CreateQuery appends a query. Blank text leaves the table untouched.
func (h *Handler) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	table := h.queryTable(w, r, body.AgentID)
	if table == nil {
		return
	}
	added, err := table.Add(r.Context(), body.Query)
	if err != nil {
		h.failWith(w, r, err, "", map[string]any{"state": table.State()})
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	JSON(w, status, table.State())
}

// UpdateQuery replaces the text of a query.
func (h *Handler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if !decodeJSON(w, r, &body) {
		return
	}
	table := h.queryTable(w, r, body.AgentID)
	if table == nil {
		return
	}
	if err := table.BeginEdit(chi.URLParam(r, "queryID")); err != nil {
		if errors.Is(err, view.ErrUnknownQuery) {
			JSON(w, http.StatusNotFound, map[string]any{"error": "Query not found", "state": table.State()})
			return
		}
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	table.SetDraft(body.Query)
	if err := table.SaveEdit(r.Context()); err != nil {
		h.failWith(w, r, err, "", map[string]any{"state": table.State()})
		return
	}
	JSON(w, http.StatusOK, table.State())
}

// DeleteQuery removes a query. On failure the unchanged list is returned
// with the error.
func (h *Handler) DeleteQuery(w http.ResponseWriter, r *http.Request) {
	table := h.queryTable(w, r, "")
	if table == nil {
		return
	}
	if err := table.Delete(r.Context(), chi.URLParam(r, "queryID")); err != nil {
		h.failWith(w, r, err, "", map[string]any{"state": table.State()})
		return
	}
	JSON(w, http.StatusOK, table.State())
}
