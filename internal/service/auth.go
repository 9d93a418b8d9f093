package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || email == "" || req.Password == "" || phone == "" {
		return nil, validationError("All fields are required")
	}

	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, newError(ErrConflict, "User with this email already exists")
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user
	user := &models.User{
		Name:       name,
		Email:      email,
		Password:   string(hashedPassword),
		Phone:      phone,
		Role:       models.RoleClient,
		ProjectIDs: []string{},
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "User with this email already exists")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.generateJWT(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    userView(user, user.Role),
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}

	role := s.resolveRole(user, email, req.Password)

	// Generate JWT token
	token, err := s.generateJWT(user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    userView(user, role),
	}, nil
}

// resolveRole picks the role carried by the issued token. In credentials
// mode only the configured admin pair is Admin and everyone else is Client.
func (s *DefaultService) resolveRole(user *models.User, email, password string) models.Role {
	if s.roleSource == RoleSourceStored {
		if user.Role == "" {
			return models.RoleClient
		}
		return user.Role
	}
	if s.adminConfigured() && email == normalizeEmail(s.admin.Email) && password == s.admin.Password {
		return models.RoleAdmin
	}
	return models.RoleClient
}

func (s *DefaultService) adminConfigured() bool {
	return normalizeEmail(s.admin.Email) != "" && s.admin.Password != ""
}

// EnsureAdmin creates the configured admin account, or brings an existing one
// back in line with the configured password and role. It reports whether the
// account was created, and returns a nil user when no admin pair is configured.
func (s *DefaultService) EnsureAdmin(ctx context.Context) (*models.User, bool, error) {
	if !s.adminConfigured() {
		s.logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, no admin account seeded")
		return nil, false, nil
	}
	email := normalizeEmail(s.admin.Email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("error checking admin account: %w", err)
	}

	if user == nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, fmt.Errorf("error hashing password: %w", err)
		}

		name := s.admin.Name
		if name == "" {
			name = "Administrator"
		}
		user = &models.User{
			Name:       name,
			Email:      email,
			Password:   string(hashedPassword),
			Phone:      s.admin.Phone,
			Role:       models.RoleAdmin,
			ProjectIDs: []string{},
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("error creating admin account: %w", err)
		}
		s.logger.Info("created admin account %s", email)
		return user, true, nil
	}

	changed := false
	if user.Role != models.RoleAdmin {
		user.Role = models.RoleAdmin
		changed = true
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(s.admin.Password)) != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(s.admin.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, fmt.Errorf("error hashing password: %w", err)
		}
		user.Password = string(hashedPassword)
		changed = true
	}
	if changed {
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("error updating admin account: %w", err)
		}
		s.logger.Info("updated admin account %s", email)
	}
	return user, false, nil
}

// Helper methods
func (s *DefaultService) generateJWT(userID string, role models.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID, // subject
		"role": string(role),
		"iat":  now.Unix(), // issued at
	}
	if s.tokenDuration > 0 {
		claims["exp"] = now.Add(s.tokenDuration).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func userView(user *models.User, role models.Role) models.UserView {
	return models.UserView{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
		Role:  role,
	}
}
