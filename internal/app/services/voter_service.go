package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/app/tally"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/logger"
)

const minPasswordLength = 6

// RegisterVoterRequest is a voter self-registration.
type RegisterVoterRequest struct {
	Matricule string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Faculty   string
	Promotion string
	Password  string
}

// VoterService defines voter registry operations
type VoterService interface {
	Register(ctx context.Context, req RegisterVoterRequest) (*models.Voter, error)
	Get(ctx context.Context, id int64) (*models.Voter, error)
	UpdateProfile(ctx context.Context, id int64, upd models.VoterProfileUpdate) (*models.Voter, error)
	List(ctx context.Context, filter models.VoterFilter) ([]*models.Voter, int64, error)
	Stats(ctx context.Context) (*models.VoterStats, error)
	SetActive(ctx context.Context, id int64, active bool, adminID int64) error
}

type voterServiceImpl struct {
	voters   repositories.VoterRepository
	election ElectionService
	log      zerolog.Logger
}

// NewVoterService creates a new voter service instance. Has-voted flags and
// turnout are reported for the election's current session.
func NewVoterService(voters repositories.VoterRepository, election ElectionService) VoterService {
	return &voterServiceImpl{
		voters:   voters,
		election: election,
		log:      logger.Component("voters"),
	}
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password", fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}
	return nil
}

func (s *voterServiceImpl) Register(ctx context.Context, req RegisterVoterRequest) (*models.Voter, error) {
	req.Matricule = strings.TrimSpace(req.Matricule)
	if !models.ValidMatricule(req.Matricule) {
		return nil, apperrors.NewValidationError("matricule", "invalid matricule format, expected 12345.6.12345")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, apperrors.NewValidationError("name", "first and last name are required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.NewValidationError("email", "email is required")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	v := &models.Voter{
		Matricule:    req.Matricule,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Faculty:      strings.TrimSpace(req.Faculty),
		Promotion:    strings.TrimSpace(req.Promotion),
		PasswordHash: hash,
	}
	if _, err := s.voters.Create(ctx, v); err != nil {
		return nil, err
	}

	s.log.Info().Int64("voter_id", v.ID).Msg("Voter registered")
	return v, nil
}

func (s *voterServiceImpl) Get(ctx context.Context, id int64) (*models.Voter, error) {
	v, err := s.voters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("voter %d not found", id))
		}
		return nil, err
	}

	sessionID, err := s.election.CurrentSessionID(ctx)
	if err != nil {
		return nil, err
	}
	if v.HasVoted, err = s.voters.Voted(ctx, id, sessionID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *voterServiceImpl) UpdateProfile(ctx context.Context, id int64, upd models.VoterProfileUpdate) (*models.Voter, error) {
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email", "email cannot be empty")
		}
		upd.Email = &email
	}

	if err := s.voters.UpdateProfile(ctx, id, upd); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("voter %d not found", id))
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *voterServiceImpl) List(ctx context.Context, filter models.VoterFilter) ([]*models.Voter, int64, error) {
	sessionID, err := s.election.CurrentSessionID(ctx)
	if err != nil {
		return nil, 0, err
	}
	filter.SessionID = sessionID
	return s.voters.List(ctx, filter)
}

func (s *voterServiceImpl) Stats(ctx context.Context) (*models.VoterStats, error) {
	sessionID, err := s.election.CurrentSessionID(ctx)
	if err != nil {
		return nil, err
	}
	byFaculty, err := s.voters.StatsByFaculty(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stats := &models.VoterStats{ByFaculty: byFaculty}
	for i := range byFaculty {
		fp := &byFaculty[i]
		fp.Rate = tally.ParticipationRate(fp.Voted, fp.Total)
		stats.Total += fp.Total
		stats.Voted += fp.Voted
	}
	stats.Rate = tally.ParticipationRate(stats.Voted, stats.Total)
	return stats, nil
}

func (s *voterServiceImpl) SetActive(ctx context.Context, id int64, active bool, adminID int64) error {
	if err := s.voters.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NewResourceNotFoundError(fmt.Sprintf("voter %d not found", id))
		}
		return err
	}
	logger.Audit(adminID, "voter_set_active").Int64("voter_id", id).Bool("active", active).Msg("Voter updated")
	return nil
}
