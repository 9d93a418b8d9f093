package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rongwang/buildtrue-server/internal/models"
)

// refreshTotals recomputes the project's cost fields from its ledger entries
// and persists the project. Callers hold the project lock.
func (s *DefaultService) refreshTotals(ctx context.Context, project *models.Project) error {
	records, err := s.repo.ListLaborByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("error listing labor records: %w", err)
	}
	materials, err := s.repo.ListMaterialsByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("error listing materials: %w", err)
	}

	var labor, material float64
	for _, r := range records {
		labor += r.TotalWage
	}
	for i := range materials {
		material += materials[i].PurchaseTotal()
	}

	project.TotalLaborCost = labor
	project.TotalMaterialCost = material
	project.GrandProjectCost = labor + material

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return fmt.Errorf("error updating project totals: %w", err)
	}
	return nil
}

func (s *DefaultService) ListLabor(ctx context.Context, requester Requester, projectID string) (*models.LaborListResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	records, err := s.repo.ListLaborByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing labor records: %w", err)
	}

	return &models.LaborListResponse{
		LaborRecords: records,
		LedgerTotals: models.TotalsOf(project),
	}, nil
}

func (s *DefaultService) AddLabor(ctx context.Context, projectID string, req models.CreateLaborRequest) (*models.LaborResponse, error) {
	if strings.TrimSpace(req.LaborType) == "" {
		return nil, validationError("laborType is required")
	}
	if req.NumberOfWorkers < 1 {
		return nil, validationError("numberOfWorkers must be at least 1")
	}
	if req.Rate == nil || *req.Rate < 0 {
		return nil, validationError("rate must be zero or more")
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	labor := &models.LaborRecord{
		ProjectID:       projectID,
		LaborType:       strings.TrimSpace(req.LaborType),
		NumberOfWorkers: req.NumberOfWorkers,
		Date:            date,
		Rate:            *req.Rate,
		Description:     strings.TrimSpace(req.Description),
	}
	labor.TotalWage = labor.Rate * float64(labor.NumberOfWorkers)

	if err := s.repo.CreateLabor(ctx, labor); err != nil {
		return nil, fmt.Errorf("error creating labor record: %w", err)
	}

	project.LaborIDs = appendUnique(project.LaborIDs, labor.ID)
	if err := s.refreshTotals(ctx, project); err != nil {
		return nil, err
	}

	return &models.LaborResponse{
		Message: "Labor record added successfully",
		Labor:   labor,
		Totals:  models.TotalsOf(project),
	}, nil
}

// loadLabor returns the record only when it belongs to projectID
func (s *DefaultService) loadLabor(ctx context.Context, projectID, laborID string) (*models.LaborRecord, error) {
	labor, err := s.repo.GetLabor(ctx, laborID)
	if err != nil {
		return nil, fmt.Errorf("error getting labor record: %w", err)
	}
	if labor == nil || labor.ProjectID != projectID {
		return nil, notFound("Labor record")
	}
	return labor, nil
}

func (s *DefaultService) UpdateLabor(ctx context.Context, projectID, laborID string, req models.UpdateLaborRequest) (*models.LaborResponse, error) {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	labor, err := s.loadLabor(ctx, projectID, laborID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(req.LaborType); v != "" {
		labor.LaborType = v
	}
	if req.NumberOfWorkers != nil {
		if *req.NumberOfWorkers < 1 {
			return nil, validationError("numberOfWorkers must be at least 1")
		}
		labor.NumberOfWorkers = *req.NumberOfWorkers
	}
	if req.Rate != nil {
		if *req.Rate < 0 {
			return nil, validationError("rate must be zero or more")
		}
		labor.Rate = *req.Rate
	}
	if req.Date != "" {
		if labor.Date, err = parseDate("date", req.Date); err != nil {
			return nil, err
		}
	}
	if v := strings.TrimSpace(req.Description); v != "" {
		labor.Description = v
	}
	labor.TotalWage = labor.Rate * float64(labor.NumberOfWorkers)

	if err := s.repo.UpdateLabor(ctx, labor); err != nil {
		return nil, fmt.Errorf("error updating labor record: %w", err)
	}
	if err := s.refreshTotals(ctx, project); err != nil {
		return nil, err
	}

	return &models.LaborResponse{
		Message: "Labor record updated successfully",
		Labor:   labor,
		Totals:  models.TotalsOf(project),
	}, nil
}

func (s *DefaultService) DeleteLabor(ctx context.Context, projectID, laborID string) (*models.LaborResponse, error) {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadLabor(ctx, projectID, laborID); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteLabor(ctx, laborID); err != nil {
		return nil, fmt.Errorf("error deleting labor record: %w", err)
	}

	project.LaborIDs = removeID(project.LaborIDs, laborID)
	if err := s.refreshTotals(ctx, project); err != nil {
		return nil, err
	}

	return &models.LaborResponse{
		Message: "Labor record deleted successfully",
		Totals:  models.TotalsOf(project),
	}, nil
}
