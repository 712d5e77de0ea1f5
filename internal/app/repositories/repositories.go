package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/dberrors"
)

// ErrNotFound is returned by every repository when a row does not exist.
var ErrNotFound = apperrors.ErrResourceNotFound

// Unique constraints shared by both backends.
var (
	BallotVoterSessionKey = dberrors.Constraint{Name: "ballots_voter_session_key", Columns: "ballots.voter_id, ballots.session_id"}
	VoterMatriculeKey     = dberrors.Constraint{Name: "voters_matricule_key", Columns: "voters.matricule"}
	VoterEmailKey         = dberrors.Constraint{Name: "voters_email_key", Columns: "voters.email"}
	CandidateMatriculeKey = dberrors.Constraint{Name: "candidates_matricule_key", Columns: "candidates.matricule"}
	CandidateEmailKey     = dberrors.Constraint{Name: "candidates_email_key", Columns: "candidates.email"}
	CandidateNumberKey    = dberrors.Constraint{Name: "candidates_number_key", Columns: "candidates.candidate_number"}
	AdminUsernameKey      = dberrors.Constraint{Name: "admins_username_key", Columns: "admins.username"}
	AdminEmailKey         = dberrors.Constraint{Name: "admins_email_key", Columns: "admins.email"}
)

// ErrCandidateNumberTaken signals a collision on the generated candidate
// number; callers regenerate and retry.
var ErrCandidateNumberTaken = apperrors.NewConflictError("candidate number already assigned")

// BallotRepository is the ballot store. Uniqueness of (voter, session) is
// enforced by the storage layer, and every mutation touching vote counters
// runs in a single transaction.
type BallotRepository interface {
	// Cast inserts the ballot and its selections, increments each selected
	// candidate's counter and marks the voter as having voted. It fills in
	// ballot.CastAt. Fails with apperrors.ErrDuplicateBallot or
	// apperrors.ErrIneligibleCandidate and then persists nothing.
	Cast(ctx context.Context, ballot *models.Ballot) error
	HasVoted(ctx context.Context, voterID int64, sessionID string) (bool, *time.Time, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Ballot, error)
	List(ctx context.Context, filter models.BallotFilter) ([]*models.Ballot, int64, error)
	// Invalidate soft-invalidates a ballot and decrements its counters. It
	// reports false when the ballot was already invalid.
	Invalidate(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	// Reset deletes every ballot of every session, zeroes all counters and
	// clears every has-voted flag. Returns the number of ballots removed.
	Reset(ctx context.Context) (int64, error)
	// Recount rebuilds every candidate counter from valid ballots and returns
	// how many counters changed.
	Recount(ctx context.Context) (int64, error)
	// ScanSelections streams the selections of valid ballots. An empty
	// sessionID means every session.
	ScanSelections(ctx context.Context, sessionID string, fn func(models.Selection) error) error
	ScanCastTimes(ctx context.Context, sessionID string, fn func(time.Time) error) error
	CountBallots(ctx context.Context, sessionID string) (int64, error)
	CountVotersWithBallot(ctx context.Context, sessionID string) (int64, error)
}

// CandidateRepository stores candidate applications.
type CandidateRepository interface {
	Create(ctx context.Context, c *models.Candidate) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Candidate, error)
	GetByMatricule(ctx context.Context, matricule string) (*models.Candidate, error)
	GetByNumber(ctx context.Context, number string) (*models.Candidate, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error)
	List(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error)
	ListApprovedByOffice(ctx context.Context, office models.Office) ([]*models.Candidate, error)
	UpdateStatus(ctx context.Context, id int64, status models.CandidateStatus, reason *string) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePhoto(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.CandidateStats, error)
}

// VoterRepository stores registered voters.
type VoterRepository interface {
	Create(ctx context.Context, v *models.Voter) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Voter, error)
	GetByMatricule(ctx context.Context, matricule string) (*models.Voter, error)
	UpdateProfile(ctx context.Context, id int64, upd models.VoterProfileUpdate) error
	List(ctx context.Context, filter models.VoterFilter) ([]*models.Voter, int64, error)
	CountActive(ctx context.Context) (int64, error)
	// Voted and StatsByFaculty derive turnout from valid ballots, in
	// sessionID when set.
	Voted(ctx context.Context, id int64, sessionID string) (bool, error)
	StatsByFaculty(ctx context.Context, sessionID string) ([]models.FacultyParticipation, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// AdminRepository stores administrator accounts.
type AdminRepository interface {
	Create(ctx context.Context, a *models.Admin) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// SettingsRepository persists the election settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.ElectionSettings, error)
	SetVotingOpen(ctx context.Context, open bool, by int64) (*models.ElectionSettings, error)
	SetSessionOverride(ctx context.Context, sessionID string, by int64) (*models.ElectionSettings, error)
}

// Repositories holds all the repository instances
type Repositories struct {
	Ballots    BallotRepository
	Candidates CandidateRepository
	Voters     VoterRepository
	Admins     AdminRepository
	Settings   SettingsRepository
}

// NewRepositories initializes the postgres repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Ballots:    NewBallotRepository(db),
		Candidates: NewCandidateRepository(db),
		Voters:     NewVoterRepository(db),
		Admins:     NewAdminRepository(db),
		Settings:   NewSettingsRepository(db),
	}
}

// PageBounds normalizes offset/limit. A non-positive limit falls back to
// defaultLimit and limits above maxLimit are clamped.
func PageBounds(offset, limit int) (uint64, uint64) {
	const defaultLimit, maxLimit = 20, 200
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return uint64(offset), uint64(limit)
}

// SearchPattern turns user input into a case-insensitive LIKE pattern.
func SearchPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// likeEscaper escapes LIKE wildcards; queries declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchClause matches the pattern against the given columns, case-insensitively.
func SearchClause(pattern string, columns ...string) squirrel.Or {
	or := squirrel.Or{}
	for _, c := range columns {
		or = append(or, squirrel.Expr("LOWER("+c+") LIKE LOWER(?) ESCAPE '\\'", pattern))
	}
	return or
}
