package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rongwang/buildtrue-server/internal/models"
)

// Lead inbox
func (s *DefaultService) SubmitLead(ctx context.Context, req models.LeadRequest) (*models.LeadResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, validationError("name and email are required")
	}

	lead := &models.Lead{
		Name:        name,
		Email:       email,
		PhoneNo:     strings.TrimSpace(req.PhoneNo),
		ProjectType: strings.TrimSpace(req.ProjectType),
		Message:     strings.TrimSpace(req.Message),
		Verified:    false,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("error saving request: %w", err)
	}

	return &models.LeadResponse{
		Message: "Request submitted successfully",
		Lead:    lead,
	}, nil
}

func (s *DefaultService) ListLeads(ctx context.Context) ([]models.Lead, error) {
	leads, err := s.repo.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing requests: %w", err)
	}
	return leads, nil
}

func (s *DefaultService) VerifyLead(ctx context.Context, leadID string) (*models.LeadResponse, error) {
	unlock := s.locks.Lock("lead:" + leadID)
	defer unlock()

	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("error getting request: %w", err)
	}
	if lead == nil {
		return nil, notFound("Request")
	}

	if !lead.Verified {
		lead.Verified = true
		if err := s.repo.UpdateLead(ctx, lead); err != nil {
			return nil, fmt.Errorf("error verifying request: %w", err)
		}
	}

	return &models.LeadResponse{
		Message: "Request verified successfully",
		Lead:    lead,
	}, nil
}
