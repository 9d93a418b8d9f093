package service_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/storage"
	"github.com/rongwang/buildtrue-server/internal/utils"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin123@gmail.com"
	adminPassword = "admin123"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[string][]models.UnviewedSummary
}

func (b *recordingBroadcaster) PublishUnviewed(userID string, summary models.UnviewedSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = make(map[string][]models.UnviewedSummary)
	}
	b.events[userID] = append(b.events[userID], summary)
	return nil
}

func (b *recordingBroadcaster) last(userID string) (models.UnviewedSummary, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events[userID]
	if len(events) == 0 {
		return models.UnviewedSummary{}, false
	}
	return events[len(events)-1], true
}

type fixture struct {
	svc         *service.DefaultService
	repo        *repository.MemoryRepository
	mailer      *notify.RecordingMailer
	store       *storage.DiskStore
	broadcaster *recordingBroadcaster
	admin       service.Requester
}

func newFixture(t *testing.T, mutate ...func(*service.Options)) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	store, err := storage.NewDiskStore(t.TempDir(), "http://media.test", 1<<20)
	require.NoError(t, err)
	mailer := &notify.RecordingMailer{}
	broadcaster := &recordingBroadcaster{}

	opts := service.Options{
		JWTSecret:   "test-secret-key",
		Admin:       service.AdminAccount{Email: adminEmail, Password: adminPassword, Name: "Admin"},
		TeamName:    "The BuildTrue Team",
		Logger:      utils.Discard(),
		Broadcaster: broadcaster,
	}
	for _, m := range mutate {
		m(&opts)
	}

	svc := service.NewDefaultService(repo, store, mailer, opts)
	admin, _, err := svc.EnsureAdmin(context.Background())
	require.NoError(t, err)

	return &fixture{
		svc:         svc,
		repo:        repo,
		mailer:      mailer,
		store:       store,
		broadcaster: broadcaster,
		admin:       service.Requester{ID: admin.ID, Role: models.RoleAdmin},
	}
}

// signUpClient registers a client account and returns it as a requester
func (f *fixture) signUpClient(t *testing.T, email string) service.Requester {
	t.Helper()
	resp, err := f.svc.SignUp(context.Background(), models.SignUpRequest{
		Name:     "Client " + email,
		Email:    email,
		Password: "secret-pass",
		Phone:    "0400000000",
	})
	require.NoError(t, err)
	return service.Requester{ID: resp.User.ID, Role: models.RoleClient}
}

// createProject makes a project for the client registered under email
func (f *fixture) createProject(t *testing.T, email string) *models.Project {
	t.Helper()
	resp, err := f.svc.CreateProject(context.Background(), models.CreateProjectRequest{
		Name:             "Lake House",
		Location:         "Geelong",
		Cost:             "450000",
		StartDate:        "2024-01-10",
		Deadline:         "2024-12-20",
		LandArea:         "600 sqm",
		ConstructionType: "Residential",
		Divisions:        `["Foundation","Roof"]`,
		Email:            email,
	}, nil)
	require.NoError(t, err)
	return resp.Project
}

func (f *fixture) project(t *testing.T, id string) *models.Project {
	t.Helper()
	p, err := f.repo.GetProject(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func upload(name, contentType string, body string) storage.Upload {
	return storage.Upload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(body))), nil
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
