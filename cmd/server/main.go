package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/api"
	"github.com/rongwang/buildtrue-server/internal/config"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/realtime"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/storage"
	"github.com/rongwang/buildtrue-server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := utils.NewLogger()
	ctx := context.Background()

	// Set up the document store
	repo, closeRepo, err := config.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer closeRepo()

	media, uploadDir, err := setupMedia(cfg)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}

	mailer := setupMailer(cfg, logger)
	hub := realtime.NewHub(logger)
	defer hub.Close()

	// Create service
	svc := service.NewDefaultService(repo, media, mailer, service.Options{
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
		Broadcaster:       hub,
	})

	if _, _, err := svc.EnsureAdmin(ctx); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	// Create API handler
	handler := api.NewHandler(svc, hub, api.HandlerConfig{
		UploadDir:  uploadDir,
		RateLimit:  cfg.RateLimit.Requests,
		RateWindow: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	})
	defer handler.Close()

	// Set up Gin router
	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(logger, cfg.Server.AllowedOrigins)

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	logger.Info("server stopped")
}

// setupMedia builds the configured media store. The returned directory is
// non-empty when files must be served from /uploads.
func setupMedia(cfg *config.Config) (storage.MediaStore, string, error) {
	switch cfg.Storage.Driver {
	case "cloudinary":
		store, err := storage.NewCloudinaryStore(cfg.Storage.CloudinaryURL, cfg.Storage.MaxUploadBytes)
		return store, "", err
	case "disk", "":
		store, err := storage.NewDiskStore(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxUploadBytes)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	default:
		return nil, "", fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

func setupMailer(cfg *config.Config, logger *utils.Logger) notify.Mailer {
	if cfg.Mail.Driver == "resend" {
		return notify.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From, "")
	}
	return notify.NewLogMailer(logger)
}
