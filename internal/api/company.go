package api

import (
	"net/http"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
)

// GetCompany returns the logged-in user's company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	company, err := h.session(r).GetCompany(r.Context(), user.CompanyID)
	if err != nil {
		h.fail(w, r, err, "Failed to load company")
		return
	}
	JSON(w, http.StatusOK, company)
}

// UpdateCompany edits the logged-in user's company.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var update domain.CompanyUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	company, err := h.session(r).UpdateCompany(r.Context(), user.CompanyID, update)
	if err != nil {
		h.fail(w, r, err, "Failed to update company")
		return
	}
	h.notifier(r).Notify(notify.KindSuccess, "Company updated successfully", "")
	JSON(w, http.StatusOK, company)
}

// ListCompanies returns every company visible to the user.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.session(r).GetAllCompanies(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to load companies")
		return
	}
	JSON(w, http.StatusOK, companies)
}
