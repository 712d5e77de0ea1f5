package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories/sqlite"
	"github.com/yigit/univote/internal/app/repositories/storetest"
	"github.com/yigit/univote/internal/pkg/auth"
	"github.com/yigit/univote/internal/pkg/filestorage"
	"github.com/yigit/univote/internal/pkg/logger"
)

const testResetPhrase = "JE-CONFIRME-LA-REINITIALISATION"

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	logger.Configure(logger.Config{Level: logger.ErrorLevel, Output: os.Stderr})
	os.Exit(m.Run())
}

// recorder collects published result events.
type recorder struct {
	mu     sync.Mutex
	events []ResultsEvent
}

func (r *recorder) ResultsChanged(e ResultsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []ResultsEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResultsEventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type testEnv struct {
	store    *sqlite.Store
	fixtures *storetest.Store
	svc      *Services
	events   *recorder
	jwt      *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "univote.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	jwtCfg, err := auth.NewJWTConfig("test-secret", "15m", "1h", "univote-test")
	if err != nil {
		t.Fatalf("jwt config: %v", err)
	}
	jwtSvc := auth.NewJWTService(jwtCfg)

	events := &recorder{}
	svc := NewServices(store.Repositories, Options{
		Election:    ElectionOptions{Location: time.UTC, SessionOverride: "2024"},
		ResetPhrase: testResetPhrase,
		JWT:         jwtSvc,
		Storage:     storage,
		Notifier:    events,
	})

	return &testEnv{
		store:    store,
		fixtures: &storetest.Store{Repositories: store.Repositories},
		svc:      svc,
		events:   events,
		jwt:      jwtSvc,
	}
}

func (e *testEnv) open(t *testing.T) {
	t.Helper()
	if _, err := e.svc.Election.SetVotingOpen(context.Background(), true, 0); err != nil {
		t.Fatalf("open voting: %v", err)
	}
}

func (e *testEnv) candidate(t *testing.T, office models.Office) *models.Candidate {
	t.Helper()
	return storetest.Candidate(t, e.fixtures, office, models.CandidateApproved)
}

var matriculeSeq int

func nextMatricule() string {
	matriculeSeq++
	return fmt.Sprintf("20231.1.%05d", matriculeSeq)
}

func (e *testEnv) voter(t *testing.T) *models.Voter {
	t.Helper()
	v, err := e.svc.Voters.Register(context.Background(), RegisterVoterRequest{
		Matricule: nextMatricule(),
		FirstName: "Aline",
		LastName:  "Tshibanda",
		Email:     fmt.Sprintf("voter%d@univ.test", matriculeSeq),
		Faculty:   "Droit",
		Password:  "secret1",
	})
	if err != nil {
		t.Fatalf("register voter: %v", err)
	}
	return v
}

func (e *testEnv) cast(t *testing.T, voter *models.Voter, sel models.Selections) *models.Ballot {
	t.Helper()
	b, err := e.svc.Ballots.Cast(context.Background(), CastRequest{VoterID: voter.ID, Selections: sel})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	return b
}
