package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/logger"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

// ElectionService owns the session policy and the open/closed flag.
type ElectionService interface {
	// CurrentSessionID resolves the session ballots are cast into: the
	// persisted override, else the configured override, else the current
	// year in the election time zone.
	CurrentSessionID(ctx context.Context) (string, error)
	IsVotingOpen(ctx context.Context) (bool, error)
	SetVotingOpen(ctx context.Context, open bool, adminID int64) (*models.ElectionSettings, error)
	// SetSessionOverride pins the session id; an empty id clears the override.
	SetSessionOverride(ctx context.Context, sessionID string, adminID int64) (*models.ElectionSettings, error)
	Status(ctx context.Context) (*models.ElectionStatus, error)
	Location() *time.Location
}

// ElectionOptions carries the election section of the configuration.
type ElectionOptions struct {
	Location        *time.Location
	SessionOverride string
}

type electionServiceImpl struct {
	settings repositories.SettingsRepository
	opts     ElectionOptions
	notifier ResultsNotifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewElectionService creates a new election service instance
func NewElectionService(settings repositories.SettingsRepository, opts ElectionOptions, notifier ResultsNotifier) ElectionService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &electionServiceImpl{
		settings: settings,
		opts:     opts,
		notifier: notifierOrNop(notifier),
		now:      time.Now,
		log:      logger.Component("election"),
	}
}

func (s *electionServiceImpl) Location() *time.Location {
	return s.opts.Location
}

func (s *electionServiceImpl) resolveSession(settings *models.ElectionSettings) string {
	if settings.SessionOverride != "" {
		return settings.SessionOverride
	}
	if s.opts.SessionOverride != "" {
		return s.opts.SessionOverride
	}
	return strconv.Itoa(s.now().In(s.opts.Location).Year())
}

func (s *electionServiceImpl) CurrentSessionID(ctx context.Context) (string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	return s.resolveSession(settings), nil
}

func (s *electionServiceImpl) IsVotingOpen(ctx context.Context) (bool, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	return settings.VotingOpen, nil
}

func (s *electionServiceImpl) SetVotingOpen(ctx context.Context, open bool, adminID int64) (*models.ElectionSettings, error) {
	settings, err := s.settings.SetVotingOpen(ctx, open, adminID)
	if err != nil {
		return nil, err
	}

	action := "voting_closed"
	if open {
		action = "voting_opened"
	}
	logger.Audit(adminID, action).Msg("Election state changed")

	s.notifier.ResultsChanged(ResultsEvent{Kind: EventVotingState, SessionID: s.resolveSession(settings), At: s.now()})
	return settings, nil
}

func (s *electionServiceImpl) SetSessionOverride(ctx context.Context, sessionID string, adminID int64) (*models.ElectionSettings, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" && !sessionIDPattern.MatchString(sessionID) {
		return nil, apperrors.NewValidationError("sessionId",
			fmt.Sprintf("session id %q must be 1-32 letters, digits, dots, dashes or underscores", sessionID))
	}

	settings, err := s.settings.SetSessionOverride(ctx, sessionID, adminID)
	if err != nil {
		return nil, err
	}
	logger.Audit(adminID, "session_override").Str("session_id", sessionID).Msg("Session override changed")
	return settings, nil
}

func (s *electionServiceImpl) Status(ctx context.Context) (*models.ElectionStatus, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &models.ElectionStatus{
		SessionID:  s.resolveSession(settings),
		VotingOpen: settings.VotingOpen,
		Timezone:   s.opts.Location.String(),
		UpdatedAt:  settings.UpdatedAt,
	}, nil
}
