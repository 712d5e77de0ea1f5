package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/logger"
)

// Session is the outcome of a successful login or refresh.
type Session struct {
	Tokens      *auth.TokenPair
	UserID      int64
	Role        models.RoleType
	DisplayName string
}

// AuthService authenticates voters, candidates and admins
type AuthService interface {
	LoginVoter(ctx context.Context, matricule, password string) (*Session, error)
	LoginCandidate(ctx context.Context, candidateNumber, password string) (*Session, error)
	LoginAdmin(ctx context.Context, username, password string) (*Session, error)
	// Refresh trades a refresh token for a new pair after re-checking that
	// the account still exists and is active.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

type authServiceImpl struct {
	voters     repositories.VoterRepository
	candidates repositories.CandidateRepository
	admins     repositories.AdminRepository
	jwt        *auth.JWTService
	log        zerolog.Logger
}

// NewAuthService creates a new auth service instance
func NewAuthService(
	voters repositories.VoterRepository,
	candidates repositories.CandidateRepository,
	admins repositories.AdminRepository,
	jwtService *auth.JWTService,
) AuthService {
	return &authServiceImpl{
		voters:     voters,
		candidates: candidates,
		admins:     admins,
		jwt:        jwtService,
		log:        logger.Component("auth"),
	}
}

// account is the role-independent view of a login subject.
type account struct {
	id           int64
	role         models.RoleType
	name         string
	passwordHash string
	active       bool
	approved     bool
}

func voterAccount(v *models.Voter) *account {
	return &account{id: v.ID, role: models.RoleVoter, name: v.FirstName + " " + v.LastName,
		passwordHash: v.PasswordHash, active: v.IsActive, approved: true}
}

func candidateAccount(c *models.Candidate) *account {
	return &account{id: c.ID, role: models.RoleCandidate, name: c.FullName(),
		passwordHash: c.PasswordHash, active: c.IsActive, approved: c.Status == models.CandidateApproved}
}

func adminAccount(a *models.Admin) *account {
	return &account{id: a.ID, role: a.Role, name: a.Username,
		passwordHash: a.PasswordHash, active: a.IsActive, approved: true}
}

func (s *authServiceImpl) issue(acc *account) (*Session, error) {
	if !acc.active {
		return nil, apperrors.ErrAccountDisabled
	}
	if !acc.approved {
		return nil, apperrors.NewForbiddenError("candidate application has not been approved")
	}
	pair, err := s.jwt.GenerateTokenPair(acc.id, acc.role)
	if err != nil {
		return nil, err
	}
	return &Session{Tokens: pair, UserID: acc.id, Role: acc.role, DisplayName: acc.name}, nil
}

func (s *authServiceImpl) login(acc *account, err error, password string) (*Session, error) {
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(acc.passwordHash, password) {
		s.log.Info().Str("role", string(acc.role)).Int64("user_id", acc.id).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.issue(acc)
}

func (s *authServiceImpl) LoginVoter(ctx context.Context, matricule, password string) (*Session, error) {
	v, err := s.voters.GetByMatricule(ctx, strings.TrimSpace(matricule))
	if err != nil {
		return s.login(nil, err, password)
	}
	return s.login(voterAccount(v), nil, password)
}

func (s *authServiceImpl) LoginCandidate(ctx context.Context, candidateNumber, password string) (*Session, error) {
	c, err := s.candidates.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(candidateNumber)))
	if err != nil {
		return s.login(nil, err, password)
	}
	return s.login(candidateAccount(c), nil, password)
}

func (s *authServiceImpl) LoginAdmin(ctx context.Context, username, password string) (*Session, error) {
	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return s.login(nil, err, password)
	}
	sess, err := s.login(adminAccount(a), nil, password)
	if err != nil {
		return nil, err
	}
	if err := s.admins.TouchLogin(ctx, a.ID, time.Now()); err != nil {
		s.log.Warn().Err(err).Int64("admin_id", a.ID).Msg("Failed to record admin login")
	}
	logger.Audit(a.ID, "login").Msg("Admin logged in")
	return sess, nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwt.ValidateToken(refreshToken, auth.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	var acc *account
	switch role := claims.RoleType(); role {
	case models.RoleVoter:
		var v *models.Voter
		if v, err = s.voters.GetByID(ctx, claims.UserID); err == nil {
			acc = voterAccount(v)
		}
	case models.RoleCandidate:
		var c *models.Candidate
		if c, err = s.candidates.GetByID(ctx, claims.UserID); err == nil {
			acc = candidateAccount(c)
		}
	case models.RoleAdmin, models.RoleSuperAdmin:
		var a *models.Admin
		if a, err = s.admins.GetByID(ctx, claims.UserID); err == nil {
			acc = adminAccount(a)
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrTokenInvalid, role)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	return s.issue(acc)
}
