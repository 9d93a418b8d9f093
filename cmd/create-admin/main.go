package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rongwang/buildtrue-server/internal/config"
	"github.com/rongwang/buildtrue-server/internal/notify"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/utils"
)

// create-admin seeds or repairs the administrator account and exits
func main() {
	cfg := config.LoadConfig()

	email := flag.String("email", cfg.Auth.AdminEmail, "admin email")
	password := flag.String("password", cfg.Auth.AdminPassword, "admin password")
	name := flag.String("name", cfg.Auth.AdminName, "admin display name")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeRepo, err := config.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer closeRepo()

	logger := utils.NewLogger()
	svc := service.NewDefaultService(repo, nil, notify.NewLogMailer(logger), service.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		Admin: service.AdminAccount{
			Email:    strings.ToLower(strings.TrimSpace(*email)),
			Password: *password,
			Name:     *name,
			Phone:    cfg.Auth.AdminPhone,
		},
		Logger: logger,
	})

	user, created, err := svc.EnsureAdmin(ctx)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	if created {
		fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID)
	} else {
		fmt.Printf("Admin %s (%s) is up to date\n", user.Email, user.ID)
	}
}
