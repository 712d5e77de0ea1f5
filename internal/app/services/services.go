// Package services holds the business logic between the HTTP controllers and
// the repositories.
package services

import (
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/filestorage"
)

// Options configures the service layer.
type Options struct {
	Election    ElectionOptions
	ResetPhrase string
	JWT         *auth.JWTService
	Storage     filestorage.FileStorage
	Notifier    ResultsNotifier
	Reviews     ReviewNotifier
}

// Services holds all the service instances
type Services struct {
	Election   ElectionService
	Ballots    BallotService
	Candidates CandidateService
	Voters     VoterService
	Auth       AuthService
	Admins     AdminService
	Results    ResultsService
	Export     ExportService
}

// NewServices wires the services over one set of repositories.
func NewServices(repos *repositories.Repositories, opts Options) *Services {
	election := NewElectionService(repos.Settings, opts.Election, opts.Notifier)
	candidates := NewCandidateService(repos.Candidates, opts.Storage, opts.Reviews)
	results := NewResultsService(repos, election)

	return &Services{
		Election:   election,
		Ballots:    NewBallotService(repos.Ballots, candidates, election, opts.Notifier, opts.ResetPhrase),
		Candidates: candidates,
		Voters:     NewVoterService(repos.Voters, election),
		Auth:       NewAuthService(repos.Voters, repos.Candidates, repos.Admins, opts.JWT),
		Admins:     NewAdminService(repos.Admins),
		Results:    results,
		Export:     NewExportService(repos, results),
	}
}
