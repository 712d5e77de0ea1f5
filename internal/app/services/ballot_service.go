package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/logger"
)

// CastRequest is one voter's submission.
type CastRequest struct {
	VoterID    int64
	Selections models.Selections
	IPAddress  string
	UserAgent  string
}

// BallotService casts ballots and runs the administrative ballot operations.
type BallotService interface {
	// Cast records a ballot in the current session. Fails with
	// ErrVotingClosed, ErrDuplicateBallot or ErrIneligibleCandidate.
	Cast(ctx context.Context, req CastRequest) (*models.Ballot, error)
	Status(ctx context.Context, voterID int64) (*models.BallotStatus, error)
	History(ctx context.Context, filter models.BallotFilter) ([]*models.Ballot, int64, error)
	// Invalidate excludes a ballot from every count. It reports false when
	// the ballot was already invalid.
	Invalidate(ctx context.Context, id uuid.UUID, reason string, adminID int64) (bool, error)
	Recount(ctx context.Context, adminID int64) (int64, error)
	// Reset erases every ballot of every session. confirmation must equal the
	// configured reset phrase.
	Reset(ctx context.Context, confirmation string, adminID int64) (int64, error)
}

type ballotServiceImpl struct {
	ballots     repositories.BallotRepository
	candidates  CandidateService
	election    ElectionService
	notifier    ResultsNotifier
	resetPhrase string
	log         zerolog.Logger

	// casts share the lock; reset and recount take it exclusively
	mu sync.RWMutex
}

// NewBallotService creates a new ballot service instance
func NewBallotService(
	ballots repositories.BallotRepository,
	candidates CandidateService,
	election ElectionService,
	notifier ResultsNotifier,
	resetPhrase string,
) BallotService {
	return &ballotServiceImpl{
		ballots:     ballots,
		candidates:  candidates,
		election:    election,
		notifier:    notifierOrNop(notifier),
		resetPhrase: resetPhrase,
		log:         logger.Component("ballots"),
	}
}

// validateSelections checks the shape of a ballot. Every office is optional,
// so a blank ballot is valid.
func validateSelections(selections models.Selections) error {
	for office, id := range selections {
		if !office.Valid() {
			return apperrors.NewValidationError("selections", fmt.Sprintf("unknown office %q", office))
		}
		if id <= 0 {
			return apperrors.NewValidationError("selections", fmt.Sprintf("invalid candidate id for %s", office))
		}
	}
	return nil
}

func (s *ballotServiceImpl) Cast(ctx context.Context, req CastRequest) (*models.Ballot, error) {
	if err := validateSelections(req.Selections); err != nil {
		return nil, err
	}

	open, err := s.election.IsVotingOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, apperrors.ErrVotingClosed
	}

	sessionID, err := s.election.CurrentSessionID(ctx)
	if err != nil {
		return nil, err
	}

	voted, _, err := s.ballots.HasVoted(ctx, req.VoterID, sessionID)
	if err != nil {
		return nil, err
	}
	if voted {
		s.log.Info().Int64("voter_id", req.VoterID).Str("session_id", sessionID).Msg("Duplicate ballot rejected")
		return nil, apperrors.ErrDuplicateBallot
	}

	if err := s.candidates.ValidateEligible(ctx, req.Selections); err != nil {
		return nil, err
	}

	selections := req.Selections
	if selections == nil {
		selections = models.Selections{}
	}
	ballot := &models.Ballot{
		VoterID:    req.VoterID,
		SessionID:  sessionID,
		Selections: selections,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}

	s.mu.RLock()
	err = s.ballots.Cast(ctx, ballot)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateBallot) {
			s.log.Info().Int64("voter_id", req.VoterID).Str("session_id", sessionID).Msg("Duplicate ballot rejected")
		}
		return nil, err
	}

	s.log.Info().
		Str("ballot_id", ballot.ID.String()).
		Int64("voter_id", ballot.VoterID).
		Str("session_id", sessionID).
		Int("selections", len(ballot.Selections)).
		Msg("Ballot cast")
	s.notifier.ResultsChanged(ResultsEvent{Kind: EventBallotCast, SessionID: sessionID, At: ballot.CastAt})
	return ballot, nil
}

func (s *ballotServiceImpl) Status(ctx context.Context, voterID int64) (*models.BallotStatus, error) {
	status, err := s.election.Status(ctx)
	if err != nil {
		return nil, err
	}
	voted, castAt, err := s.ballots.HasVoted(ctx, voterID, status.SessionID)
	if err != nil {
		return nil, err
	}
	return &models.BallotStatus{
		SessionID:  status.SessionID,
		HasVoted:   voted,
		CastAt:     castAt,
		VotingOpen: status.VotingOpen,
	}, nil
}

func (s *ballotServiceImpl) History(ctx context.Context, filter models.BallotFilter) ([]*models.Ballot, int64, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, apperrors.NewValidationError("to", "end of range is before its start")
	}
	return s.ballots.List(ctx, filter)
}

func (s *ballotServiceImpl) Invalidate(ctx context.Context, id uuid.UUID, reason string, adminID int64) (bool, error) {
	if reason == "" {
		return false, apperrors.NewValidationError("reason", "an invalidation reason is required")
	}

	s.mu.RLock()
	changed, err := s.ballots.Invalidate(ctx, id, reason)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, apperrors.NewResourceNotFoundError(fmt.Sprintf("ballot %s not found", id))
		}
		return false, err
	}
	if !changed {
		return false, nil
	}

	logger.Audit(adminID, "ballot_invalidate").Str("ballot_id", id.String()).Str("reason", reason).Msg("Ballot invalidated")
	s.notifier.ResultsChanged(ResultsEvent{Kind: EventBallotInvalidated, At: time.Now()})
	return true, nil
}

func (s *ballotServiceImpl) Recount(ctx context.Context, adminID int64) (int64, error) {
	s.mu.Lock()
	changed, err := s.ballots.Recount(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	logger.Audit(adminID, "recount").Int64("counters_changed", changed).Msg("Vote counters rebuilt")
	if changed > 0 {
		s.log.Warn().Int64("counters_changed", changed).Msg("Recount repaired drifted counters")
	}
	s.notifier.ResultsChanged(ResultsEvent{Kind: EventRecount, At: time.Now()})
	return changed, nil
}

func (s *ballotServiceImpl) Reset(ctx context.Context, confirmation string, adminID int64) (int64, error) {
	if s.resetPhrase == "" || confirmation != s.resetPhrase {
		return 0, apperrors.ErrConfirmationRequired
	}

	s.mu.Lock()
	removed, err := s.ballots.Reset(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	logger.Audit(adminID, "reset").Int64("ballots_removed", removed).Msg("All ballots erased")
	s.notifier.ResultsChanged(ResultsEvent{Kind: EventReset, At: time.Now()})
	return removed, nil
}
