package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/logger"
)

const minAdminPasswordLength = 8

// CreateAdminRequest describes a new administrator account.
type CreateAdminRequest struct {
	Username string
	Email    string
	Password string
	Role     models.RoleType
}

// AdminService manages administrator accounts
type AdminService interface {
	Create(ctx context.Context, req CreateAdminRequest, actorID int64) (*models.Admin, error)
	Get(ctx context.Context, id int64) (*models.Admin, error)
	// EnsureDefault creates a super admin from the bootstrap credentials when
	// no admin exists yet. It reports whether an account was created.
	EnsureDefault(ctx context.Context, username, email, password string) (bool, error)
}

type adminServiceImpl struct {
	admins repositories.AdminRepository
}

// NewAdminService creates a new admin service instance
func NewAdminService(admins repositories.AdminRepository) AdminService {
	return &adminServiceImpl{admins: admins}
}

func (s *adminServiceImpl) Create(ctx context.Context, req CreateAdminRequest, actorID int64) (*models.Admin, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = models.RoleAdmin
	}

	if req.Username == "" {
		return nil, apperrors.NewValidationError("username", "username is required")
	}
	if req.Email == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	if !req.Role.IsAdmin() {
		return nil, apperrors.NewValidationError("role", fmt.Sprintf("role %q is not an admin role", req.Role))
	}
	if len(req.Password) < minAdminPasswordLength {
		return nil, apperrors.NewValidationError("password",
			fmt.Sprintf("password must be at least %d characters long", minAdminPasswordLength))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := &models.Admin{Username: req.Username, Email: req.Email, PasswordHash: hash, Role: req.Role}
	if _, err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	logger.Audit(actorID, "admin_create").Int64("admin_id", a.ID).Str("role", string(a.Role)).Msg("Admin created")
	return a, nil
}

func (s *adminServiceImpl) Get(ctx context.Context, id int64) (*models.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("admin %d not found", id))
		}
		return nil, err
	}
	return a, nil
}

func (s *adminServiceImpl) EnsureDefault(ctx context.Context, username, email, password string) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if password == "" {
		return false, fmt.Errorf("no admin exists and no bootstrap admin password is configured")
	}

	a, err := s.Create(ctx, CreateAdminRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     models.RoleSuperAdmin,
	}, 0)
	if err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}
	logger.Warn().Str("username", a.Username).Msg("Default super admin created from bootstrap credentials")
	return true, nil
}
