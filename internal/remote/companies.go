package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashureev/agentdesk/internal/domain"
)

// GetCompany fetches one company.
func (s *Session) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	var company domain.Company
	if err := s.call(ctx, http.MethodGet, "/company/"+url.PathEscape(companyID), nil, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// GetAllCompanies lists every company visible to the caller.
func (s *Session) GetAllCompanies(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	if err := s.call(ctx, http.MethodGet, "/company", nil, &companies); err != nil {
		return nil, err
	}
	if err := validateAll(companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// UpdateCompany edits a company.
func (s *Session) UpdateCompany(ctx context.Context, companyID string, update domain.CompanyUpdate) (*domain.Company, error) {
	var company domain.Company
	if err := s.call(ctx, http.MethodPut, "/company/"+url.PathEscape(companyID), update, &company); err != nil {
		return nil, err
	}
	return &company, nil
}
