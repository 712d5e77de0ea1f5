package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/repositories/sqlite"
	appServices "github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/config"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func testConfig(open bool) *config.Config {
	cfg := &config.Config{}
	cfg.Admin.Username = "root"
	cfg.Admin.Email = "root@univote.local"
	cfg.Admin.Password = "bootstrap-secret"
	cfg.Election.VotingOpen = open
	return cfg
}

func TestCreateDefaultDataSeedsAdminAndVotingState(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	admins := appServices.NewAdminService(store.Admins)

	if err := CreateDefaultData(ctx, testConfig(true), store.Repositories, admins, zerolog.Nop()); err != nil {
		t.Fatalf("CreateDefaultData: %v", err)
	}

	n, err := store.Admins.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("admins = %d, %v; want 1", n, err)
	}
	settings, err := store.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !settings.VotingOpen {
		t.Fatal("expected voting open from configuration")
	}

	// second boot is a no-op
	if err := CreateDefaultData(ctx, testConfig(true), store.Repositories, admins, zerolog.Nop()); err != nil {
		t.Fatalf("second CreateDefaultData: %v", err)
	}
	if n, _ := store.Admins.Count(ctx); n != 1 {
		t.Fatalf("admins after second boot = %d", n)
	}
}

func TestCreateDefaultDataOnlyAppliesVotingStateOnFirstBoot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	admins := appServices.NewAdminService(store.Admins)

	if err := CreateDefaultData(ctx, testConfig(false), store.Repositories, admins, zerolog.Nop()); err != nil {
		t.Fatalf("CreateDefaultData: %v", err)
	}
	if _, err := store.Settings.SetVotingOpen(ctx, true, 1); err != nil {
		t.Fatalf("SetVotingOpen: %v", err)
	}
	if err := CreateDefaultData(ctx, testConfig(false), store.Repositories, admins, zerolog.Nop()); err != nil {
		t.Fatalf("second CreateDefaultData: %v", err)
	}

	settings, err := store.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !settings.VotingOpen {
		t.Fatal("configured state must not override an admin decision")
	}
}

func TestCreateDefaultDataWithoutPassword(t *testing.T) {
	store := openStore(t)
	cfg := testConfig(false)
	cfg.Admin.Password = ""

	err := CreateDefaultData(context.Background(), cfg, store.Repositories, appServices.NewAdminService(store.Admins), zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error when no admin exists and no password is configured")
	}
}
