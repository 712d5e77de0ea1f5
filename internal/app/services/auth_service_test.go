package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/auth"
)

func TestLoginVoter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.voter(t)

	sess, err := env.svc.Auth.LoginVoter(ctx, " "+v.Matricule+" ", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Role != models.RoleVoter || sess.UserID != v.ID || sess.DisplayName != "Aline Tshibanda" {
		t.Fatalf("session = %+v", sess)
	}
	claims, err := env.jwt.ValidateToken(sess.Tokens.AccessToken, auth.AccessToken)
	if err != nil || claims.UserID != v.ID || claims.RoleType() != models.RoleVoter {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	for _, tc := range []struct{ matricule, password string }{
		{v.Matricule, "wrong-pass"},
		{"99999.9.99999", "secret1"},
	} {
		if _, err := env.svc.Auth.LoginVoter(ctx, tc.matricule, tc.password); !errors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Fatalf("login(%q) = %v, want ErrInvalidCredentials", tc.matricule, err)
		}
	}

	if err := env.svc.Voters.SetActive(ctx, v.ID, false, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Auth.LoginVoter(ctx, v.Matricule, "secret1"); !errors.Is(err, apperrors.ErrAccountDisabled) {
		t.Fatalf("disabled login = %v", err)
	}
}

func TestLoginAdminAndDefaultBootstrap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created, err := env.svc.Admins.EnsureDefault(ctx, "root", "root@univ.test", "changeme-now")
	if err != nil || !created {
		t.Fatalf("ensure default = %v, %v", created, err)
	}
	created, err = env.svc.Admins.EnsureDefault(ctx, "root", "root@univ.test", "changeme-now")
	if err != nil || created {
		t.Fatalf("second ensure default = %v, %v", created, err)
	}

	sess, err := env.svc.Auth.LoginAdmin(ctx, "root", "changeme-now")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Role != models.RoleSuperAdmin {
		t.Fatalf("role = %s", sess.Role)
	}
	admin, err := env.svc.Admins.Get(ctx, sess.UserID)
	if err != nil || admin.LastLoginAt == nil {
		t.Fatalf("admin after login = %+v, %v", admin, err)
	}

	if _, err := env.svc.Auth.LoginAdmin(ctx, "root", "nope"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("bad password = %v", err)
	}
}

func TestCreateAdminValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.svc.Admins.Create(ctx, CreateAdminRequest{Username: "ops", Email: "ops@univ.test", Password: "short", Role: models.RoleAdmin}, 1); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("short password = %v", err)
	}
	if _, err := env.svc.Admins.Create(ctx, CreateAdminRequest{Username: "ops", Email: "ops@univ.test", Password: "long-enough", Role: models.RoleVoter}, 1); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("voter role = %v", err)
	}
	if _, err := env.svc.Admins.Create(ctx, CreateAdminRequest{Username: "ops", Email: "ops@univ.test", Password: "long-enough", Role: models.RoleAdmin}, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Admins.Create(ctx, CreateAdminRequest{Username: "ops", Email: "ops2@univ.test", Password: "long-enough", Role: models.RoleAdmin}, 1); !errors.Is(err, apperrors.ErrUsernameExists) {
		t.Fatalf("duplicate username = %v", err)
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.voter(t)

	sess, err := env.svc.Auth.LoginVoter(ctx, v.Matricule, "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := env.svc.Auth.Refresh(ctx, sess.Tokens.AccessToken); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Fatalf("refresh with access token = %v", err)
	}

	refreshed, err := env.svc.Auth.Refresh(ctx, sess.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.UserID != v.ID || refreshed.Tokens.AccessToken == "" {
		t.Fatalf("refreshed = %+v", refreshed)
	}

	if err := env.svc.Voters.SetActive(ctx, v.ID, false, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Auth.Refresh(ctx, sess.Tokens.RefreshToken); !errors.Is(err, apperrors.ErrAccountDisabled) {
		t.Fatalf("refresh for disabled voter = %v", err)
	}
}
