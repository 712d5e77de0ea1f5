package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/logger"
)

// ExportFormat is the serialization of an export.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ExportDataset selects the table written by a CSV export. JSON exports
// always contain every dataset.
type ExportDataset string

const (
	DatasetResults    ExportDataset = "results"
	DatasetBallots    ExportDataset = "ballots"
	DatasetVoters     ExportDataset = "voters"
	DatasetCandidates ExportDataset = "candidates"
)

const exportPageSize = 200

// ExportRequest parameterizes an export. An empty SessionID exports every session.
type ExportRequest struct {
	Format    ExportFormat
	Dataset   ExportDataset
	SessionID string
	ActorID   int64
}

// ExportMetadata heads a JSON export.
type ExportMetadata struct {
	ExportedAt time.Time    `json:"exportedAt"`
	ExportedBy int64        `json:"exportedBy"`
	SessionID  string       `json:"sessionId"`
	Format     ExportFormat `json:"format"`
}

// ExportDocument is the JSON export body.
type ExportDocument struct {
	Metadata   ExportMetadata          `json:"metadata"`
	Results    *models.ElectionResults `json:"results"`
	Voters     []*models.Voter         `json:"voters"`
	Candidates []*models.Candidate     `json:"candidates"`
	Ballots    []*models.Ballot        `json:"ballots"`
}

// ExportService writes election data for archiving.
type ExportService interface {
	Export(ctx context.Context, w io.Writer, req ExportRequest) error
}

type exportServiceImpl struct {
	repos   *repositories.Repositories
	results ResultsService
	now     func() time.Time
}

// NewExportService creates a new export service instance
func NewExportService(repos *repositories.Repositories, results ResultsService) ExportService {
	return &exportServiceImpl{repos: repos, results: results, now: time.Now}
}

// ValidateExportRequest normalizes defaults and rejects unknown values.
func ValidateExportRequest(req *ExportRequest) error {
	if req.Format == "" {
		req.Format = ExportJSON
	}
	if req.Dataset == "" {
		req.Dataset = DatasetResults
	}
	if req.Format != ExportJSON && req.Format != ExportCSV {
		return apperrors.NewValidationError("format", fmt.Sprintf("unsupported export format %q", req.Format))
	}
	switch req.Dataset {
	case DatasetResults, DatasetBallots, DatasetVoters, DatasetCandidates:
	default:
		return apperrors.NewValidationError("dataset", fmt.Sprintf("unknown dataset %q", req.Dataset))
	}
	return nil
}

func (s *exportServiceImpl) Export(ctx context.Context, w io.Writer, req ExportRequest) error {
	if err := ValidateExportRequest(&req); err != nil {
		return err
	}

	var err error
	if req.Format == ExportJSON {
		err = s.exportJSON(ctx, w, req)
	} else {
		err = s.exportCSV(ctx, w, req)
	}
	if err != nil {
		return err
	}

	session := req.SessionID
	if session == "" {
		session = "all"
	}
	logger.Audit(req.ActorID, "export").
		Str("format", string(req.Format)).
		Str("dataset", string(req.Dataset)).
		Str("session_id", session).
		Msg("Election data exported")
	return nil
}

// collect drains a paginated listing.
func collect[T any](fetch func(offset, limit int) ([]T, int64, error)) ([]T, error) {
	all := []T{}
	for offset := 0; ; offset += exportPageSize {
		page, _, err := fetch(offset, exportPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

func (s *exportServiceImpl) ballots(ctx context.Context, sessionID string) ([]*models.Ballot, error) {
	return collect(func(offset, limit int) ([]*models.Ballot, int64, error) {
		return s.repos.Ballots.List(ctx, models.BallotFilter{SessionID: sessionID, Offset: offset, Limit: limit})
	})
}

func (s *exportServiceImpl) voters(ctx context.Context) ([]*models.Voter, error) {
	return collect(func(offset, limit int) ([]*models.Voter, int64, error) {
		return s.repos.Voters.List(ctx, models.VoterFilter{Offset: offset, Limit: limit})
	})
}

func (s *exportServiceImpl) candidates(ctx context.Context) ([]*models.Candidate, error) {
	return collect(func(offset, limit int) ([]*models.Candidate, int64, error) {
		return s.repos.Candidates.List(ctx, models.CandidateFilter{Offset: offset, Limit: limit})
	})
}

func (s *exportServiceImpl) exportJSON(ctx context.Context, w io.Writer, req ExportRequest) error {
	session := req.SessionID
	if session == "" {
		session = "all"
	}
	doc := ExportDocument{
		Metadata: ExportMetadata{ExportedAt: s.now().UTC(), ExportedBy: req.ActorID, SessionID: session, Format: ExportJSON},
	}

	var err error
	if doc.Results, err = s.results.Results(ctx, req.SessionID); err != nil {
		return err
	}
	if doc.Voters, err = s.voters(ctx); err != nil {
		return err
	}
	if doc.Candidates, err = s.candidates(ctx); err != nil {
		return err
	}
	if doc.Ballots, err = s.ballots(ctx, req.SessionID); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (s *exportServiceImpl) exportCSV(ctx context.Context, w io.Writer, req ExportRequest) error {
	cw := csv.NewWriter(w)

	var err error
	switch req.Dataset {
	case DatasetResults:
		err = s.resultsCSV(ctx, cw, req.SessionID)
	case DatasetBallots:
		err = s.ballotsCSV(ctx, cw, req.SessionID)
	case DatasetVoters:
		err = s.votersCSV(ctx, cw)
	case DatasetCandidates:
		err = s.candidatesCSV(ctx, cw)
	}
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *exportServiceImpl) resultsCSV(ctx context.Context, cw *csv.Writer, sessionID string) error {
	results, err := s.results.Results(ctx, sessionID)
	if err != nil {
		return err
	}

	cw.Write([]string{"office", "label", "rank", "candidate_id", "candidate_number", "first_name", "last_name", "votes", "percentage"})
	for _, office := range results.Offices {
		for i, e := range office.Entries {
			cw.Write([]string{
				string(office.Office),
				office.Label,
				strconv.Itoa(i + 1),
				strconv.FormatInt(e.Candidate.ID, 10),
				e.Candidate.CandidateNumber,
				e.Candidate.FirstName,
				e.Candidate.LastName,
				strconv.FormatInt(e.Votes, 10),
				strconv.FormatFloat(e.Percentage, 'f', 2, 64),
			})
		}
	}
	return nil
}

func (s *exportServiceImpl) ballotsCSV(ctx context.Context, cw *csv.Writer, sessionID string) error {
	ballots, err := s.ballots(ctx, sessionID)
	if err != nil {
		return err
	}

	header := []string{"ballot_id", "voter_id", "session_id", "cast_at", "is_valid"}
	for _, o := range models.AllOffices {
		header = append(header, string(o))
	}
	cw.Write(header)

	for _, b := range ballots {
		row := []string{
			b.ID.String(),
			strconv.FormatInt(b.VoterID, 10),
			b.SessionID,
			formatTime(b.CastAt),
			strconv.FormatBool(b.IsValid),
		}
		for _, o := range models.AllOffices {
			cell := ""
			if id, ok := b.Selections[o]; ok {
				cell = strconv.FormatInt(id, 10)
			}
			row = append(row, cell)
		}
		cw.Write(row)
	}
	return nil
}

func (s *exportServiceImpl) votersCSV(ctx context.Context, cw *csv.Writer) error {
	voters, err := s.voters(ctx)
	if err != nil {
		return err
	}
	cw.Write([]string{"id", "matricule", "first_name", "last_name", "email", "faculty", "promotion", "has_voted", "is_active", "created_at"})
	for _, v := range voters {
		cw.Write([]string{
			strconv.FormatInt(v.ID, 10), v.Matricule, v.FirstName, v.LastName, v.Email, v.Faculty, v.Promotion,
			strconv.FormatBool(v.HasVoted), strconv.FormatBool(v.IsActive), formatTime(v.CreatedAt),
		})
	}
	return nil
}

func (s *exportServiceImpl) candidatesCSV(ctx context.Context, cw *csv.Writer) error {
	candidates, err := s.candidates(ctx)
	if err != nil {
		return err
	}
	cw.Write([]string{"id", "candidate_number", "matricule", "first_name", "last_name", "office", "status", "is_active", "vote_count"})
	for _, c := range candidates {
		cw.Write([]string{
			strconv.FormatInt(c.ID, 10), c.CandidateNumber, c.Matricule, c.FirstName, c.LastName,
			string(c.Office), string(c.Status), strconv.FormatBool(c.IsActive), strconv.FormatInt(c.VoteCount, 10),
		})
	}
	return nil
}
