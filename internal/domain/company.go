package domain

import "strings"

// Company is a tenant account.
type Company struct {
	ID       string `json:"_id"`
	Name     string `json:"companyname"`
	Email    string `json:"companyemail"`
	Location string `json:"companylocation,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Validate requires an id.
func (c Company) Validate() error {
	if c.ID == "" {
		return invalid("company: _id is missing")
	}
	return nil
}

// CompanyRegistration registers a company together with its admin user.
type CompanyRegistration struct {
	CompanyName     string `json:"companyname"`
	CompanyEmail    string `json:"companyemail"`
	CompanyLocation string `json:"companylocation"`
	Industry        string `json:"industry"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Phone           string `json:"phone"`
	Role            string `json:"role"`
}

// Validate checks required fields and defaults the admin role.
func (r *CompanyRegistration) Validate() error {
	switch {
	case strings.TrimSpace(r.CompanyName) == "":
		return invalid("company name is required")
	case strings.TrimSpace(r.CompanyEmail) == "":
		return invalid("company email is required")
	case strings.TrimSpace(r.Email) == "":
		return invalid("admin email is required")
	case r.Password == "":
		return invalid("admin password is required")
	}
	if r.Role == "" {
		r.Role = "admin"
	}
	return nil
}

// CompanyUpdate carries the editable company fields.
type CompanyUpdate struct {
	Name     string `json:"companyname,omitempty"`
	Email    string `json:"companyemail,omitempty"`
	Location string `json:"companylocation,omitempty"`
	Industry string `json:"industry,omitempty"`
}
