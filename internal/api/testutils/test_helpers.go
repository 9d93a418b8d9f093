package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/buildtrue-server/internal/api"
	"github.com/rongwang/buildtrue-server/internal/config"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/realtime"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/storage"
	"github.com/rongwang/buildtrue-server/internal/utils"
	"github.com/stretchr/testify/require"
)

const (
	AdminEmail     = "admin123@gmail.com"
	AdminPassword  = "admin123"
	ClientEmail    = "client@example.com"
	ClientPassword = "clientpassword"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Handler    *api.Handler
	Repository repository.Repository
	Service    service.Service
	Mailer     *notify.RecordingMailer
	Store      *storage.DiskStore
	Hub        *realtime.Hub
	JWTSecret  []byte
	DB         *sqlx.DB

	AdminID   string
	AdminJWT  string
	ClientID  string
	ClientJWT string
}

// Option adjusts the configuration before the context is built
type Option func(cfg *config.Config)

// SetupTestContext creates a new test context with initialized dependencies.
// The memory repository is used unless TEST_DB_DRIVER=postgres, in which case
// the test database from the environment is wiped and used.
func SetupTestContext(t *testing.T, opts ...Option) *TestContext {
	t.Helper()

	cfg := config.LoadConfig()
	cfg.Auth.JWTSecret = "test-secret-key"
	cfg.Auth.TokenTTLHours = 0
	cfg.Auth.AdminEmail = AdminEmail
	cfg.Auth.AdminPassword = AdminPassword
	cfg.Auth.RoleSource = config.RoleSourceCredentials
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.PublicBaseURL = "http://localhost:8080"
	cfg.Storage.MaxUploadBytes = 1 << 20
	cfg.Storage.MaxFilesPerUpload = 10
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.WindowSeconds = 60
	for _, opt := range opts {
		opt(cfg)
	}

	tc := &TestContext{JWTSecret: []byte(cfg.Auth.JWTSecret)}

	if os.Getenv("TEST_DB_DRIVER") == "postgres" {
		if cfg.Database.TestDBName != "" {
			cfg.Database.DBName = cfg.Database.TestDBName
		}
		db, err := config.SetupDatabase(cfg)
		require.NoError(t, err, "Failed to set up test database")
		tc.DB = db
		tc.Repository = repository.NewPostgresRepository(db)
		cleanupTestDatabase(t, tc.Repository)
	} else {
		tc.Repository = repository.NewMemoryRepository()
	}

	store, err := storage.NewDiskStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxUploadBytes)
	require.NoError(t, err)
	tc.Store = store
	tc.Mailer = &notify.RecordingMailer{}

	logger := utils.Discard()
	tc.Hub = realtime.NewHub(logger)

	svc := service.NewDefaultService(tc.Repository, store, tc.Mailer, service.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		Admin: service.AdminAccount{
			Email:    cfg.Auth.AdminEmail,
			Password: cfg.Auth.AdminPassword,
			Name:     cfg.Auth.AdminName,
			Phone:    cfg.Auth.AdminPhone,
		},
		RoleSource:        cfg.Auth.RoleSource,
		MaxFilesPerUpload: cfg.Storage.MaxFilesPerUpload,
		TeamName:          cfg.Mail.TeamName,
		Logger:            logger,
		Broadcaster:       tc.Hub,
	})
	tc.Service = svc

	admin, _, err := svc.EnsureAdmin(context.Background())
	require.NoError(t, err, "Failed to seed admin")
	tc.AdminID = admin.ID

	tc.Handler = api.NewHandler(svc, tc.Hub, api.HandlerConfig{
		UploadDir:  cfg.Storage.UploadDir,
		RateLimit:  cfg.RateLimit.Requests,
		RateWindow: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", tc.JWTSecret)
		c.Next()
	})

	tc.Handler.SetupRoutes(router)
	tc.Router = router

	tc.AdminJWT = tc.Login(t, AdminEmail, AdminPassword)
	tc.ClientID, tc.ClientJWT = tc.CreateClient(t, ClientEmail, ClientPassword)

	return tc
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	tc.Handler.Close()
	_ = tc.Hub.Close()
	if tc.DB != nil {
		cleanupTestDatabase(nil, tc.Repository)
		tc.DB.Close()
		tc.DB = nil
	}
}

// cleanupTestDatabase removes the rows left by earlier runs
func cleanupTestDatabase(t *testing.T, repo repository.Repository) {
	pgRepo, ok := repo.(*repository.PostgresRepository)
	if !ok {
		return
	}
	db := pgRepo.GetDB()

	for _, table := range []string{"progress_updates", "materials", "labor_records", "projects", "client_requests", "users"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil && t != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

// Login returns a token for the given credentials
func (tc *TestContext) Login(t *testing.T, email, password string) string {
	t.Helper()
	w := PerformRequest(tc.Router, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    email,
		Password: password,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.AuthResponse
	DecodeJSON(t, w, &resp)
	return resp.Token
}

// CreateClient registers a client through the API and returns its id and token
func (tc *TestContext) CreateClient(t *testing.T, email, password string) (string, string) {
	t.Helper()
	w := PerformRequest(tc.Router, http.MethodPost, "/api/auth/signup", models.SignUpRequest{
		Name:     "Client " + email,
		Email:    email,
		Password: password,
		Phone:    "0400000000",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.AuthResponse
	DecodeJSON(t, w, &resp)
	return resp.User.ID, resp.Token
}

// CreateProject posts a JSON project for the client behind email as admin
func (tc *TestContext) CreateProject(t *testing.T, email string) *models.Project {
	t.Helper()
	w := PerformRequest(tc.Router, http.MethodPost, "/api/projects", map[string]string{
		"name":             "Harbour Townhouses",
		"location":         "Williamstown",
		"cost":             "980000",
		"startDate":        "2024-02-01",
		"deadline":         "2025-03-31",
		"landArea":         "1200 sqm",
		"constructionType": "Residential",
		"divisions":        `["Foundation","Framing","Roofing"]`,
		"email":            email,
	}, AuthHeaders(tc.AdminJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ProjectResponse
	DecodeJSON(t, w, &resp)
	require.NotNil(t, resp.Project)
	return resp.Project
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// File is one part of a multipart request
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     []byte
}

// PerformMultipart executes a multipart/form-data request against the router
func PerformMultipart(r http.Handler, method, path string, fields map[string]string, files []File, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name)}
		h["Content-Type"] = []string{f.ContentType}
		part, _ := mw.CreatePart(h)
		_, _ = part.Write(f.Content)
	}
	_ = mw.Close()

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals the recorded response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
