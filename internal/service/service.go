package service

import (
	"context"
	"time"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"github.com/rongwang/buildtrue-server/internal/storage"
	"github.com/rongwang/buildtrue-server/internal/utils"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	EnsureAdmin(ctx context.Context) (*models.User, bool, error)

	// Projects
	CreateProject(ctx context.Context, req models.CreateProjectRequest, image *storage.Upload) (*models.ProjectResponse, error)
	ListProjects(ctx context.Context) ([]models.ProjectListItem, error)
	GetProject(ctx context.Context, requester Requester, projectID string) (*models.ProjectDetailResponse, error)
	UpdateProject(ctx context.Context, projectID string, req models.UpdateProjectRequest, image *storage.Upload) (*models.ProjectResponse, error)
	ChangeStatus(ctx context.Context, projectID string, status models.ProjectStatus) (*models.ProjectResponse, error)
	DeleteProject(ctx context.Context, projectID string) error
	GetMetrics(ctx context.Context) (*models.MetricsResponse, error)
	ListClientProjects(ctx context.Context, requester Requester, clientID string) (*models.ClientProjectsResponse, error)

	// Labor ledger
	ListLabor(ctx context.Context, requester Requester, projectID string) (*models.LaborListResponse, error)
	AddLabor(ctx context.Context, projectID string, req models.CreateLaborRequest) (*models.LaborResponse, error)
	UpdateLabor(ctx context.Context, projectID, laborID string, req models.UpdateLaborRequest) (*models.LaborResponse, error)
	DeleteLabor(ctx context.Context, projectID, laborID string) (*models.LaborResponse, error)

	// Material ledger
	ListMaterials(ctx context.Context, requester Requester, projectID string) (*models.MaterialListResponse, error)
	UpsertUsage(ctx context.Context, projectID string, req models.UsageRequest) (*models.MaterialResponse, error)
	UpsertPurchase(ctx context.Context, projectID string, req models.PurchaseRequest) (*models.MaterialResponse, error)
	DeleteUsage(ctx context.Context, projectID, usageID string) (*models.MaterialResponse, error)
	DeletePurchase(ctx context.Context, projectID, purchaseID string) (*models.MaterialResponse, error)

	// Progress tracker
	CreateProgress(ctx context.Context, projectID string, req models.ProgressRequest, media []storage.Upload) (*models.ProgressResponse, error)
	GetProgress(ctx context.Context, requester Requester, progressID string) (*models.ProgressResponse, error)
	UpdateProgress(ctx context.Context, projectID, progressID string, req models.ProgressRequest, media []storage.Upload) (*models.ProgressResponse, error)
	DeleteProgress(ctx context.Context, projectID, progressID string) error
	AddMessage(ctx context.Context, requester Requester, progressID string, req models.MessageRequest) (*models.ProgressResponse, error)
	MarkViewed(ctx context.Context, requester Requester, progressID string) (*models.ProgressResponse, error)
	ListProgress(ctx context.Context, requester Requester, projectID string) (*models.ProgressListResponse, error)
	UnviewedSummary(ctx context.Context, requester Requester, clientID string) (*models.UnviewedSummary, error)
	NotifyProgress(ctx context.Context, projectID, progressID string) error

	// Lead inbox
	SubmitLead(ctx context.Context, req models.LeadRequest) (*models.LeadResponse, error)
	ListLeads(ctx context.Context) ([]models.Lead, error)
	VerifyLead(ctx context.Context, leadID string) (*models.LeadResponse, error)
}

// Requester is the authenticated caller of an operation
type Requester struct {
	ID   string
	Role models.Role
}

func (r Requester) IsAdmin() bool {
	return r.Role == models.RoleAdmin
}

// Broadcaster pushes unviewed-progress summaries to a connected client
type Broadcaster interface {
	PublishUnviewed(userID string, summary models.UnviewedSummary) error
}

// AdminAccount is the bootstrap administrator credential pair
type AdminAccount struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Role sources for Login
const (
	RoleSourceCredentials = "credentials"
	RoleSourceStored      = "stored"
)

// Options configures a DefaultService
type Options struct {
	JWTSecret         string
	TokenTTL          time.Duration // zero issues tokens without expiry
	Admin             AdminAccount
	RoleSource        string
	MaxFilesPerUpload int
	TeamName          string
	Logger            *utils.Logger
	Broadcaster       Broadcaster
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	media         storage.MediaStore
	mailer        notify.Mailer
	jwtSecret     []byte
	tokenDuration time.Duration
	admin         AdminAccount
	roleSource    string
	maxFiles      int
	teamName      string
	logger        *utils.Logger
	broadcaster   Broadcaster
	locks         *keyedMutex
	now           func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, media storage.MediaStore, mailer notify.Mailer, opts Options) *DefaultService {
	if opts.Logger == nil {
		opts.Logger = utils.NewLogger()
	}
	if opts.RoleSource == "" {
		opts.RoleSource = RoleSourceCredentials
	}
	if opts.MaxFilesPerUpload <= 0 {
		opts.MaxFilesPerUpload = 10
	}

	return &DefaultService{
		repo:          repo,
		media:         media,
		mailer:        mailer,
		jwtSecret:     []byte(opts.JWTSecret),
		tokenDuration: opts.TokenTTL,
		admin:         opts.Admin,
		roleSource:    opts.RoleSource,
		maxFiles:      opts.MaxFilesPerUpload,
		teamName:      opts.TeamName,
		logger:        opts.Logger,
		broadcaster:   opts.Broadcaster,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var _ Service = (*DefaultService)(nil)

// loadProject returns the project or a not-found error
func (s *DefaultService) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFound("Project")
	}
	return project, nil
}

// authorizeProject allows admins and the client that owns the project
func authorizeProject(requester Requester, project *models.Project) error {
	if requester.IsAdmin() || (requester.ID != "" && requester.ID == project.ClientID) {
		return nil
	}
	return forbidden("Access denied: you are not the client of this project")
}

// lockProject serializes writers of one project's document
func (s *DefaultService) lockProject(projectID string) func() {
	return s.locks.Lock("project:" + projectID)
}

func (s *DefaultService) lockUser(userID string) func() {
	return s.locks.Lock("user:" + userID)
}

func clientSummary(user *models.User) models.ClientSummary {
	return models.ClientSummary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
