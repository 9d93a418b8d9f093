package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/repository"
)

func (s *DefaultService) ListMaterials(ctx context.Context, requester Requester, projectID string) (*models.MaterialListResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := authorizeProject(requester, project); err != nil {
		return nil, err
	}

	materials, err := s.repo.ListMaterialsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("error listing materials: %w", err)
	}

	return &models.MaterialListResponse{
		Materials:    materials,
		LedgerTotals: models.TotalsOf(project),
	}, nil
}

// materialForName finds the project's material document for name or starts a
// new one. The bool reports whether the document is new.
func (s *DefaultService) materialForName(ctx context.Context, projectID, name string) (*models.Material, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, validationError("materialName is required")
	}

	material, err := s.repo.GetMaterialByName(ctx, projectID, name)
	if err != nil {
		return nil, false, fmt.Errorf("error getting material: %w", err)
	}
	if material != nil {
		return material, false, nil
	}

	return &models.Material{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         name,
		UsageInfo:    []models.MaterialUsage{},
		PurchaseInfo: []models.MaterialPurchase{},
	}, true, nil
}

func (s *DefaultService) saveMaterial(ctx context.Context, material *models.Material) error {
	if err := s.repo.SaveMaterial(ctx, material); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return newError(ErrConflict, "Material %q already exists for this project", material.Name)
		}
		return fmt.Errorf("error saving material: %w", err)
	}
	return nil
}

func (s *DefaultService) UpsertUsage(ctx context.Context, projectID string, req models.UsageRequest) (*models.MaterialResponse, error) {
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, validationError("quantity must be zero or more")
	}
	if strings.TrimSpace(req.Division) == "" {
		return nil, validationError("division is required")
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

	usage := models.MaterialUsage{
		ID:          req.UsageID,
		Division:    strings.TrimSpace(req.Division),
		Quantity:    *req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		Description: strings.TrimSpace(req.Description),
		Date:        date,
	}

	var material *models.Material
	created := false
	if req.UsageID != "" {
		material, err = s.repo.GetMaterialByUsageID(ctx, projectID, req.UsageID)
		if err != nil {
			return nil, fmt.Errorf("error getting material: %w", err)
		}
		if material == nil {
			return nil, notFound("Usage entry")
		}
		for i := range material.UsageInfo {
			if material.UsageInfo[i].ID == req.UsageID {
				material.UsageInfo[i] = usage
			}
		}
	} else {
		material, created, err = s.materialForName(ctx, projectID, req.MaterialName)
		if err != nil {
			return nil, err
		}
		usage.ID = uuid.New().String()
		material.UsageInfo = append(material.UsageInfo, usage)
	}

	if err := s.saveMaterial(ctx, material); err != nil {
		return nil, err
	}

	if created {
		project.MaterialIDs = appendUnique(project.MaterialIDs, material.ID)
		if err := s.repo.UpdateProject(ctx, project); err != nil {
			return nil, fmt.Errorf("error updating project materials: %w", err)
		}
	}

	return &models.MaterialResponse{
		Material: material,
		Totals:   models.TotalsOf(project),
	}, nil
}

func (s *DefaultService) UpsertPurchase(ctx context.Context, projectID string, req models.PurchaseRequest) (*models.MaterialResponse, error) {
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, validationError("quantity must be zero or more")
	}
	if req.UnitPrice == nil || *req.UnitPrice < 0 {
		return nil, validationError("unitPrice must be zero or more")
	}
	if req.TotalCost != nil && *req.TotalCost < 0 {
		return nil, validationError("totalCost must be zero or more")
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

	purchase := models.MaterialPurchase{
		ID:            req.PurchaseID,
		Date:          date,
		Quantity:      *req.Quantity,
		Supplier:      strings.TrimSpace(req.Supplier),
		UnitPrice:     *req.UnitPrice,
		DeliveryNote:  strings.TrimSpace(req.DeliveryNote),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
	}
	if req.TotalCost != nil {
		purchase.TotalCost = *req.TotalCost
	} else {
		purchase.TotalCost = purchase.UnitPrice * purchase.Quantity
	}

	var material *models.Material
	if req.PurchaseID != "" {
		material, err = s.repo.GetMaterialByPurchaseID(ctx, projectID, req.PurchaseID)
		if err != nil {
			return nil, fmt.Errorf("error getting material: %w", err)
		}
		if material == nil {
			return nil, notFound("Purchase entry")
		}
		for i := range material.PurchaseInfo {
			if material.PurchaseInfo[i].ID == req.PurchaseID {
				material.PurchaseInfo[i] = purchase
			}
		}
	} else {
		var created bool
		material, created, err = s.materialForName(ctx, projectID, req.MaterialName)
		if err != nil {
			return nil, err
		}
		purchase.ID = uuid.New().String()
		material.PurchaseInfo = append(material.PurchaseInfo, purchase)
		if created {
			project.MaterialIDs = appendUnique(project.MaterialIDs, material.ID)
		}
	}

	if err := s.saveMaterial(ctx, material); err != nil {
		return nil, err
	}
	if err := s.refreshTotals(ctx, project); err != nil {
		return nil, err
	}

	return &models.MaterialResponse{
		Material: material,
		Totals:   models.TotalsOf(project),
	}, nil
}

func (s *DefaultService) DeleteUsage(ctx context.Context, projectID, usageID string) (*models.MaterialResponse, error) {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	material, err := s.repo.GetMaterialByUsageID(ctx, projectID, usageID)
	if err != nil {
		return nil, fmt.Errorf("error getting material: %w", err)
	}
	if material == nil {
		return nil, notFound("Usage entry")
	}

	kept := make([]models.MaterialUsage, 0, len(material.UsageInfo))
	for _, u := range material.UsageInfo {
		if u.ID != usageID {
			kept = append(kept, u)
		}
	}
	material.UsageInfo = kept

	if err := s.saveMaterial(ctx, material); err != nil {
		return nil, err
	}

	return &models.MaterialResponse{
		Material: material,
		Totals:   models.TotalsOf(project),
	}, nil
}

func (s *DefaultService) DeletePurchase(ctx context.Context, projectID, purchaseID string) (*models.MaterialResponse, error) {
	unlock := s.lockProject(projectID)
	defer unlock()

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	material, err := s.repo.GetMaterialByPurchaseID(ctx, projectID, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("error getting material: %w", err)
	}
	if material == nil {
		return nil, notFound("Purchase entry")
	}

	kept := make([]models.MaterialPurchase, 0, len(material.PurchaseInfo))
	for _, p := range material.PurchaseInfo {
		if p.ID != purchaseID {
			kept = append(kept, p)
		}
	}
	material.PurchaseInfo = kept

	if err := s.saveMaterial(ctx, material); err != nil {
		return nil, err
	}
	if err := s.refreshTotals(ctx, project); err != nil {
		return nil, err
	}

	return &models.MaterialResponse{
		Material: material,
		Totals:   models.TotalsOf(project),
	}, nil
}
