// Package auth decides which role may perform which action on which resource.
package auth

import (
	"embed"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/logger"
)

//go:embed model.conf
var modelFS embed.FS

// Resources guarded by the enforcer
const (
	ObjBallots          = "ballots"
	ObjVoterProfile     = "voter_profile"
	ObjCandidateProfile = "candidate_profile"
	ObjDashboard        = "dashboard"
	ObjElection         = "election"
	ObjExport           = "export"
	ObjCandidates       = "candidates"
	ObjVoters           = "voters"
	ObjAdmins           = "admins"
)

// Actions
const (
	ActRead  = "read"
	ActWrite = "write"
	ActCast  = "cast"
)

// defaultPolicies is the static permission table. Admin rights are granted to
// super_admin through the role hierarchy below.
var defaultPolicies = [][]string{
	{string(models.RoleVoter), ObjBallots, ActCast},
	{string(models.RoleVoter), ObjVoterProfile, "*"},

	{string(models.RoleCandidate), ObjCandidateProfile, "*"},

	{string(models.RoleAdmin), ObjDashboard, ActRead},
	{string(models.RoleAdmin), ObjBallots, ActRead},
	{string(models.RoleAdmin), ObjBallots, ActWrite},
	{string(models.RoleAdmin), ObjElection, "*"},
	{string(models.RoleAdmin), ObjExport, ActRead},
	{string(models.RoleAdmin), ObjCandidates, "*"},
	{string(models.RoleAdmin), ObjVoters, "*"},

	{string(models.RoleSuperAdmin), ObjAdmins, "*"},
}

var roleInheritance = [][]string{
	{string(models.RoleSuperAdmin), string(models.RoleAdmin)},
}

// Enforcer wraps a casbin enforcer loaded with the role policies
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
}

// NewEnforcer builds an enforcer from the embedded model and the static policies
func NewEnforcer() (*Enforcer, error) {
	modelText, err := modelFS.ReadFile("model.conf")
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	m, err := model.NewModelFromString(string(modelText))
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to add policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(roleInheritance); err != nil {
		return nil, fmt.Errorf("failed to add role inheritance: %w", err)
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform act on obj
func (e *Enforcer) Allowed(role models.RoleType, obj, act string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ok, err := e.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		logger.Error().Err(err).Str("role", string(role)).Str("obj", obj).Str("act", act).Msg("Failed to check permission")
		return false
	}
	return ok
}

// AddPolicy grants an extra permission at runtime
func (e *Enforcer) AddPolicy(role models.RoleType, obj, act string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddPolicy(string(role), obj, act); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}
