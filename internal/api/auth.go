package api

import (
	"net/http"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/identity"
	"github.com/ashureev/agentdesk/internal/middleware"
	"github.com/ashureev/agentdesk/internal/notify"
)

// Login authenticates, stores the three credential cookies and sends the
// browser to the dashboard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if wantsJSON(r) {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			Error(w, http.StatusBadRequest, "invalid form")
			return
		}
		req = domain.LoginRequest{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	}

	resp, err := h.session(r).Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.logger.Info("User logged in", "user_id", resp.User.UserID, "company_id", resp.User.CompanyID)
	redirect(w, r, DashboardPath, map[string]any{"user": resp.User})
}

// Register creates a company with its admin user, then logs the admin in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CompanyRegistration
	if wantsJSON(r) {
		if !decodeJSON(w, r, &req) {
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			Error(w, http.StatusBadRequest, "invalid form")
			return
		}
		req = domain.CompanyRegistration{
			CompanyName:     r.PostFormValue("companyname"),
			CompanyEmail:    r.PostFormValue("companyemail"),
			CompanyLocation: r.PostFormValue("companylocation"),
			Industry:        r.PostFormValue("industry"),
			Name:            r.PostFormValue("name"),
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			Phone:           r.PostFormValue("phone"),
		}
	}
	// Self-service registration always creates the company admin.
	req.Role = "admin"

	sess := h.session(r)
	company, err := sess.RegisterCompany(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.logger.Info("Company registered", "company_id", company.ID)

	resp, err := sess.Login(r.Context(), domain.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	redirect(w, r, DashboardPath, map[string]any{"user": resp.User, "company": company})
}

// Logout revokes the session and clears the cookies even when the API call
// fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	channel := identity.ChannelFromContext(r.Context())

	if err := h.session(r).Logout(r.Context()); err != nil {
		h.logger.Warn("Remote logout failed, local session cleared", "error", err)
	}
	h.hub.Forget(channel)

	redirect(w, r, middleware.LoginPath, nil)
}

// Me returns the stored identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, user)
}

// CreateUser registers another user for the admin's company. The new user's
// tokens, if any, are not kept.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	var req domain.UserRegistration
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}

	res, err := h.client.Session(discardStore{}).Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to create user")
		return
	}
	h.notifier(r).Notify(notify.KindSuccess, "User created successfully", req.Email)
	JSON(w, http.StatusCreated, res.User)
}

// discardStore is a credential store that keeps nothing.
type discardStore struct{}

func (discardStore) Set(domain.TokenPair, domain.Identity) {}
func (discardStore) Get() (domain.Credentials, bool)       { return domain.Credentials{}, false }
func (discardStore) Identity() (domain.Identity, bool)     { return domain.Identity{}, false }
func (discardStore) UpdateTokens(domain.TokenPair)         {}
func (discardStore) Clear()                                {}
