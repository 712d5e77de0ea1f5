package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/app/tally"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

const dashboardRecentLimit = 5

// ResultsService tabulates ballots into presented results and statistics.
// An empty sessionID aggregates every session.
type ResultsService interface {
	Results(ctx context.Context, sessionID string) (*models.ElectionResults, error)
	OfficeResults(ctx context.Context, office models.Office, sessionID string) (*models.OfficeResult, error)
	Participation(ctx context.Context, sessionID string) (*models.ParticipationStats, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
}

type resultsServiceImpl struct {
	repos    *repositories.Repositories
	election ElectionService
	now      func() time.Time
}

// NewResultsService creates a new results service instance
func NewResultsService(repos *repositories.Repositories, election ElectionService) ResultsService {
	return &resultsServiceImpl{
		repos:    repos,
		election: election,
		now:      time.Now,
	}
}

func (s *resultsServiceImpl) tabulate(ctx context.Context, sessionID string) (*tally.Tabulator, map[int64]*models.Candidate, error) {
	tab := tally.New()
	err := s.repos.Ballots.ScanSelections(ctx, sessionID, func(sel models.Selection) error {
		tab.Add(sel)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	lookup, err := s.repos.Candidates.GetByIDs(ctx, tab.CandidateIDs())
	if err != nil {
		return nil, nil, err
	}
	return tab, lookup, nil
}

func (s *resultsServiceImpl) distribution(ctx context.Context, sessionID string) (*tally.Distribution, error) {
	dist := tally.NewDistribution(s.election.Location())
	err := s.repos.Ballots.ScanCastTimes(ctx, sessionID, func(ts time.Time) error {
		dist.Add(ts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

func (s *resultsServiceImpl) Results(ctx context.Context, sessionID string) (*models.ElectionResults, error) {
	tab, lookup, err := s.tabulate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dist, err := s.distribution(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	offices := make([]models.OfficeResult, 0, len(models.AllOffices))
	for _, office := range models.AllOffices {
		offices = append(offices, tally.Present(office, tab.Ranking(office), lookup))
	}

	return &models.ElectionResults{
		SessionID: sessionID,
		Offices:   offices,
		Stats: models.GeneralStats{
			TotalVotes: dist.Total(),
			Daily:      dist.Daily(),
		},
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *resultsServiceImpl) OfficeResults(ctx context.Context, office models.Office, sessionID string) (*models.OfficeResult, error) {
	if !office.Valid() {
		return nil, apperrors.NewValidationError("office", fmt.Sprintf("unknown office %q", office))
	}
	tab, lookup, err := s.tabulate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := tally.Present(office, tab.Ranking(office), lookup)
	return &result, nil
}

func (s *resultsServiceImpl) Participation(ctx context.Context, sessionID string) (*models.ParticipationStats, error) {
	registered, err := s.repos.Voters.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	voted, err := s.repos.Ballots.CountVotersWithBallot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dist, err := s.distribution(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &models.ParticipationStats{
		SessionID:        sessionID,
		RegisteredVoters: registered,
		Voted:            voted,
		Rate:             tally.ParticipationRate(voted, registered),
		TotalBallots:     dist.Total(),
		Hourly:           dist.Hourly(),
		Daily:            dist.Daily(),
	}, nil
}

func (s *resultsServiceImpl) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	status, err := s.election.Status(ctx)
	if err != nil {
		return nil, err
	}

	participation, err := s.Participation(ctx, status.SessionID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repos.Candidates.Stats(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.Results(ctx, status.SessionID)
	if err != nil {
		return nil, err
	}
	leaders := make([]models.OfficeResult, 0, len(results.Offices))
	for _, r := range results.Offices {
		if len(r.Entries) > 1 {
			r.Entries = r.Entries[:1]
		}
		leaders = append(leaders, r)
	}

	recent, _, err := s.repos.Ballots.List(ctx, models.BallotFilter{SessionID: status.SessionID, Limit: dashboardRecentLimit})
	if err != nil {
		return nil, err
	}
	pendingStatus := models.CandidatePending
	pending, _, err := s.repos.Candidates.List(ctx, models.CandidateFilter{Status: &pendingStatus, Limit: dashboardRecentLimit})
	if err != nil {
		return nil, err
	}

	return &models.Dashboard{
		SessionID:         status.SessionID,
		VotingOpen:        status.VotingOpen,
		Voters:            participation.RegisteredVoters,
		Candidates:        *candidates,
		Participation:     *participation,
		Leaders:           leaders,
		RecentBallots:     recent,
		PendingCandidates: pending,
	}, nil
}
