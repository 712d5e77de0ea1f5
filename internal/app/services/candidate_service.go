package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/filestorage"
	"github.com/yigit/univote/internal/pkg/logger"
)

const (
	candidateNumberAttempts = 10
	oneTimePasswordLength   = 8
	maxBiographyLength      = 500
	photoSubPath            = "candidates"
)

// ApplyRequest is a candidate application.
type ApplyRequest struct {
	Matricule string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Faculty   string
	Promotion string
	Office    models.Office
	Biography string
	Program   string
}

// Application is the result of a successful application. Password is the
// generated one-time password and is only ever returned here.
type Application struct {
	Candidate *models.Candidate
	Password  string
}

// CandidateService defines the candidate registry operations
type CandidateService interface {
	Apply(ctx context.Context, req ApplyRequest) (*Application, error)
	Get(ctx context.Context, id int64) (*models.Candidate, error)
	List(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error)
	// ListApprovedByOffice returns a fresh snapshot of the approved, active
	// candidates of one office ordered by last then first name.
	ListApprovedByOffice(ctx context.Context, office models.Office) ([]*models.Candidate, error)
	Approve(ctx context.Context, id, adminID int64) (*models.Candidate, error)
	Reject(ctx context.Context, id int64, reason string, adminID int64) (*models.Candidate, error)
	SetActive(ctx context.Context, id int64, active bool, adminID int64) error
	Delete(ctx context.Context, id, adminID int64) error
	UploadPhoto(ctx context.Context, id int64, photo *multipart.FileHeader) (*models.Candidate, error)
	Stats(ctx context.Context) (*models.CandidateStats, error)
	// ValidateEligible checks that every selected candidate exists, is
	// approved and active, and stands for the office it was selected in.
	ValidateEligible(ctx context.Context, selections models.Selections) error
}

// ReviewNotifier is told about each approval or rejection. A failed notice
// does not undo the review.
type ReviewNotifier interface {
	CandidateReviewed(c *models.Candidate) error
}

type candidateServiceImpl struct {
	candidates repositories.CandidateRepository
	storage    filestorage.FileStorage
	reviews    ReviewNotifier
	log        zerolog.Logger
}

// NewCandidateService creates a new candidate service instance. reviews may be nil.
func NewCandidateService(candidates repositories.CandidateRepository, storage filestorage.FileStorage, reviews ReviewNotifier) CandidateService {
	return &candidateServiceImpl{
		candidates: candidates,
		storage:    storage,
		reviews:    reviews,
		log:        logger.Component("candidates"),
	}
}

func (s *candidateServiceImpl) validateApplication(req *ApplyRequest) error {
	req.Matricule = strings.TrimSpace(req.Matricule)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Biography = strings.TrimSpace(req.Biography)

	if !models.ValidMatricule(req.Matricule) {
		return apperrors.NewValidationError("matricule", "invalid matricule format, expected 12345.6.12345")
	}
	if req.FirstName == "" || req.LastName == "" {
		return apperrors.NewValidationError("name", "first and last name are required")
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email", "email is required")
	}
	if !req.Office.Valid() {
		return apperrors.NewValidationError("office", fmt.Sprintf("unknown office %q", req.Office))
	}
	if req.Biography == "" {
		return apperrors.NewValidationError("biography", "biography is required")
	}
	if len([]rune(req.Biography)) > maxBiographyLength {
		return apperrors.NewValidationError("biography", fmt.Sprintf("biography cannot exceed %d characters", maxBiographyLength))
	}
	return nil
}

func (s *candidateServiceImpl) Apply(ctx context.Context, req ApplyRequest) (*Application, error) {
	if err := s.validateApplication(&req); err != nil {
		return nil, err
	}

	password, err := auth.GeneratePassword(oneTimePasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	c := &models.Candidate{
		Matricule:    req.Matricule,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Faculty:      strings.TrimSpace(req.Faculty),
		Promotion:    strings.TrimSpace(req.Promotion),
		Office:       req.Office,
		Biography:    req.Biography,
		Program:      strings.TrimSpace(req.Program),
		PasswordHash: hash,
	}

	for attempt := 1; ; attempt++ {
		digits, err := auth.RandomDigits(4)
		if err != nil {
			return nil, err
		}
		c.CandidateNumber = "C" + digits

		_, err = s.candidates.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrCandidateNumberTaken) || attempt == candidateNumberAttempts {
			return nil, err
		}
		s.log.Debug().Str("number", c.CandidateNumber).Msg("Candidate number taken, retrying")
	}

	s.log.Info().Int64("candidate_id", c.ID).Str("office", string(c.Office)).Msg("Candidate application received")
	return &Application{Candidate: c, Password: password}, nil
}

func (s *candidateServiceImpl) Get(ctx context.Context, id int64) (*models.Candidate, error) {
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("candidate %d not found", id))
		}
		return nil, err
	}
	return c, nil
}

func (s *candidateServiceImpl) List(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error) {
	return s.candidates.List(ctx, filter)
}

func (s *candidateServiceImpl) ListApprovedByOffice(ctx context.Context, office models.Office) ([]*models.Candidate, error) {
	if !office.Valid() {
		return nil, apperrors.NewValidationError("office", fmt.Sprintf("unknown office %q", office))
	}
	return s.candidates.ListApprovedByOffice(ctx, office)
}

// review moves a candidate to target. Repeating a decision is a no-op;
// reversing one is a conflict.
func (s *candidateServiceImpl) review(ctx context.Context, id int64, target models.CandidateStatus, reason *string, adminID int64) (*models.Candidate, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case target:
		return c, nil
	case models.CandidatePending:
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("candidate %d is already %s", id, c.Status))
	}

	if err := s.candidates.UpdateStatus(ctx, id, target, reason); err != nil {
		return nil, err
	}
	logger.Audit(adminID, "candidate_"+string(target)).Int64("candidate_id", id).Msg("Candidate reviewed")

	reviewed, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.reviews != nil {
		if err := s.reviews.CandidateReviewed(reviewed); err != nil {
			s.log.Warn().Err(err).Int64("candidateID", id).Msg("Review notice failed")
		}
	}
	return reviewed, nil
}

func (s *candidateServiceImpl) Approve(ctx context.Context, id, adminID int64) (*models.Candidate, error) {
	return s.review(ctx, id, models.CandidateApproved, nil, adminID)
}

func (s *candidateServiceImpl) Reject(ctx context.Context, id int64, reason string, adminID int64) (*models.Candidate, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "a rejection reason is required")
	}
	return s.review(ctx, id, models.CandidateRejected, &reason, adminID)
}

func (s *candidateServiceImpl) SetActive(ctx context.Context, id int64, active bool, adminID int64) error {
	if err := s.candidates.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NewResourceNotFoundError(fmt.Sprintf("candidate %d not found", id))
		}
		return err
	}
	logger.Audit(adminID, "candidate_set_active").Int64("candidate_id", id).Bool("active", active).Msg("Candidate updated")
	return nil
}

// Delete removes the candidate row. Ballots naming it keep counting and are
// presented with a placeholder identity.
func (s *candidateServiceImpl) Delete(ctx context.Context, id, adminID int64) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.candidates.Delete(ctx, id); err != nil {
		return err
	}
	if c.PhotoURL != nil && s.storage != nil {
		if err := s.storage.DeleteFile(*c.PhotoURL); err != nil {
			s.log.Warn().Err(err).Int64("candidate_id", id).Msg("Failed to delete candidate photo")
		}
	}
	logger.Audit(adminID, "candidate_delete").Int64("candidate_id", id).Msg("Candidate deleted")
	return nil
}

func (s *candidateServiceImpl) UploadPhoto(ctx context.Context, id int64, photo *multipart.FileHeader) (*models.Candidate, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("photo storage is not configured")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := filestorage.ValidateImage(photo, filestorage.MaxPhotoBytes); err != nil {
		switch {
		case errors.Is(err, filestorage.ErrFileTooLarge):
			return nil, apperrors.NewValidationError("photo", "photo cannot exceed 5 MB")
		case errors.Is(err, filestorage.ErrUnsupportedType):
			return nil, apperrors.NewValidationError("photo", "photo must be a JPEG, PNG, GIF or WebP image")
		}
		return nil, err
	}

	url, err := s.storage.SaveFileWithPath(photo, photoSubPath)
	if err != nil {
		return nil, err
	}
	if err := s.candidates.UpdatePhoto(ctx, id, url); err != nil {
		_ = s.storage.DeleteFile(url)
		return nil, err
	}
	if c.PhotoURL != nil {
		if err := s.storage.DeleteFile(*c.PhotoURL); err != nil {
			s.log.Warn().Err(err).Int64("candidate_id", id).Msg("Failed to delete previous photo")
		}
	}

	c.PhotoURL = &url
	return c, nil
}

func (s *candidateServiceImpl) Stats(ctx context.Context) (*models.CandidateStats, error) {
	return s.candidates.Stats(ctx)
}

func (s *candidateServiceImpl) ValidateEligible(ctx context.Context, selections models.Selections) error {
	found, err := s.candidates.GetByIDs(ctx, selections.CandidateIDs())
	if err != nil {
		return err
	}

	for _, office := range models.AllOffices {
		id, ok := selections[office]
		if !ok {
			continue
		}
		c, ok := found[id]
		switch {
		case !ok:
			return apperrors.NewIneligibleCandidateError(id, fmt.Sprintf("candidate %d does not exist", id))
		case c.Status != models.CandidateApproved:
			return apperrors.NewIneligibleCandidateError(id, fmt.Sprintf("candidate %d is %s, not approved", id, c.Status))
		case !c.IsActive:
			return apperrors.NewIneligibleCandidateError(id, fmt.Sprintf("candidate %d is inactive", id))
		case c.Office != office:
			return apperrors.NewIneligibleCandidateError(id,
				fmt.Sprintf("candidate %d stands for %s, not %s", id, c.Office.Label(), office.Label()))
		}
	}
	return nil
}
