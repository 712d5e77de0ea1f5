package auth

import (
	"testing"

	"github.com/yigit/univote/internal/app/models"
)

func TestEnforcerPolicies(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role models.RoleType
		obj  string
		act  string
		want bool
	}{
		{models.RoleVoter, ObjBallots, ActCast, true},
		{models.RoleVoter, ObjVoterProfile, ActWrite, true},
		{models.RoleVoter, ObjBallots, ActWrite, false},
		{models.RoleVoter, ObjBallots, ActRead, false},
		{models.RoleVoter, ObjDashboard, ActRead, false},
		{models.RoleCandidate, ObjBallots, ActCast, false},
		{models.RoleCandidate, ObjCandidateProfile, ActWrite, true},
		{models.RoleAdmin, ObjBallots, ActCast, false},
		{models.RoleAdmin, ObjElection, ActWrite, true},
		{models.RoleAdmin, ObjAdmins, ActWrite, false},
		{models.RoleSuperAdmin, ObjAdmins, ActWrite, true},
		{models.RoleSuperAdmin, ObjExport, ActRead, true},
		{"", "results", ActRead, false},
	}
	for _, tt := range tests {
		if got := e.Allowed(tt.role, tt.obj, tt.act); got != tt.want {
			t.Errorf("Allowed(%q, %q, %q) = %v, want %v", tt.role, tt.obj, tt.act, got, tt.want)
		}
	}
}

func TestAddPolicy(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}
	if e.Allowed(models.RoleCandidate, ObjDashboard, ActRead) {
		t.Fatal("candidate should not read the dashboard by default")
	}
	if err := e.AddPolicy(models.RoleCandidate, ObjDashboard, ActRead); err != nil {
		t.Fatal(err)
	}
	if !e.Allowed(models.RoleCandidate, ObjDashboard, ActRead) {
		t.Fatal("added policy not applied")
	}
}
