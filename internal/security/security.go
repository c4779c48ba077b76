// Package security implements default-deny, per-company role-based access
// control and the append-only audit log.
package security

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPermissionDenied is returned when a user's role does not grant an action.
var ErrPermissionDenied = errors.New("permission denied")

// Actions understood by the authorizer.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Resources guarded by the authorizer.
const (
	ResourceAccounts   = "accounts"
	ResourceTaxRates   = "tax_rates"
	ResourceCurrencies = "currencies"
	ResourceVisitors   = "visitors"
	ResourceVisits     = "visits"
	ResourceUsers      = "users"
	ResourceAudit      = "audit"
)

// Audit results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Role is a named set of permissions. Each permission has the form
// "resource:action"; either side may be "*".
type Role struct {
	Name        string   `yaml:"name" json:"name"`
	Permissions []string `yaml:"permissions" json:"permissions"`
}

// Permission is a parsed "resource:action" pair.
type Permission struct {
	Resource string
	Action   string
}

// ParsePermission parses a "resource:action" string. A bare "*" grants everything.
func ParsePermission(s string) (Permission, error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return Permission{Resource: "*", Action: "*"}, nil
	}
	resource, action, ok := strings.Cut(s, ":")
	if !ok || resource == "" || action == "" {
		return Permission{}, fmt.Errorf("invalid permission %q: want resource:action", s)
	}
	return Permission{Resource: resource, Action: action}, nil
}

// DefaultRoles returns the built-in roles used when none are configured.
func DefaultRoles() []Role {
	return []Role{
		{Name: "admin", Permissions: []string{"*"}},
		{Name: "accountant", Permissions: []string{
			"accounts:*", "tax_rates:*", "currencies:*", "users:read",
		}},
		{Name: "receptionist", Permissions: []string{
			"visitors:*", "visits:*", "users:read",
		}},
		{Name: "viewer", Permissions: []string{"*:read"}},
	}
}

// RoleNames returns the names of roles in order.
func RoleNames(roles []Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}
