package repository

import (
	"context"
	"errors"

	"github.com/rongwang/buildtrue-server/internal/models"
)

// ErrDuplicate is returned when a unique field (user email, material name
// within a project) is already taken
var ErrDuplicate = errors.New("duplicate key")

// ErrNotFound is returned by updates that matched no document
var ErrNotFound = errors.New("document not found")

// Repository interface defines the methods that any repository implementation must satisfy.
// Getters return nil with a nil error when the document does not exist.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// Project operations
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListProjectsByClient(ctx context.Context, clientID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id string) error
	CountProjects(ctx context.Context, status models.ProjectStatus) (int64, error) // empty status counts all

	// Labor operations
	CreateLabor(ctx context.Context, labor *models.LaborRecord) error
	GetLabor(ctx context.Context, id string) (*models.LaborRecord, error)
	ListLaborByProject(ctx context.Context, projectID string) ([]models.LaborRecord, error) // newest date first
	UpdateLabor(ctx context.Context, labor *models.LaborRecord) error
	DeleteLabor(ctx context.Context, id string) error
	DeleteLaborByProject(ctx context.Context, projectID string) error

	// Material operations
	SaveMaterial(ctx context.Context, material *models.Material) error // insert or replace
	GetMaterialByName(ctx context.Context, projectID, name string) (*models.Material, error)
	GetMaterialByUsageID(ctx context.Context, projectID, usageID string) (*models.Material, error)
	GetMaterialByPurchaseID(ctx context.Context, projectID, purchaseID string) (*models.Material, error)
	ListMaterialsByProject(ctx context.Context, projectID string) ([]models.Material, error) // newest first
	DeleteMaterialsByProject(ctx context.Context, projectID string) error

	// Progress operations
	CreateProgress(ctx context.Context, progress *models.Progress) error
	GetProgress(ctx context.Context, id string) (*models.Progress, error)
	ListProgressByProject(ctx context.Context, projectID string) ([]models.Progress, error) // newest dateUpdated first
	// UpdateProgress returns ErrNotFound when the entry no longer exists
	UpdateProgress(ctx context.Context, progress *models.Progress) error
	DeleteProgress(ctx context.Context, id string) error
	DeleteProgressByProject(ctx context.Context, projectID string) error

	// Lead operations
	CreateLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context) ([]models.Lead, error) // newest first
	UpdateLead(ctx context.Context, lead *models.Lead) error
}
