package security

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"

	"github.com/jkaninda/bureau/internal/domain"
)

// rbacModel is RBAC with domains: the domain is the company, so a role held
// in one company grants nothing in another.
const rbacModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && (p.dom == "*" || r.dom == p.dom) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Authorizer checks user permissions with a casbin enforcer. Role policies
// come from configuration; user-to-role assignments follow the user record
// and are synced on each check. Safe for concurrent use.
type Authorizer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	logger   *slog.Logger
}

// NewAuthorizer builds an Authorizer granting each role its permissions in every company.
func NewAuthorizer(roles []Role, logger *slog.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parsing rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("creating enforcer: %w", err)
	}
	for _, role := range roles {
		for _, raw := range role.Permissions {
			p, err := ParsePermission(raw)
			if err != nil {
				return nil, fmt.Errorf("role %q: %w", role.Name, err)
			}
			if _, err := e.AddPolicy(role.Name, "*", p.Resource, p.Action); err != nil {
				return nil, fmt.Errorf("adding policy for role %q: %w", role.Name, err)
			}
		}
	}
	return &Authorizer{enforcer: e, logger: logger}, nil
}

func userSubject(id uuid.UUID) string { return "user:" + id.String() }

// Authorize returns nil when u's role in its company grants action on
// resource. Inactive users are always denied.
func (a *Authorizer) Authorize(ctx context.Context, u *domain.User, resource, action string) error {
	if !u.Active {
		return fmt.Errorf("%w: user %s is deactivated", ErrPermissionDenied, u.ID)
	}
	sub, dom := userSubject(u.ID), u.CompanyID.String()
	if err := a.assign(sub, u.Role, dom); err != nil {
		return err
	}

	a.mu.RLock()
	ok, err := a.enforcer.Enforce(sub, dom, resource, action)
	a.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("enforcing %s:%s: %w", resource, action, err)
	}
	if !ok {
		a.logger.WarnContext(ctx, "permission denied",
			slog.String("user_id", u.ID.String()),
			slog.String("company_id", dom),
			slog.String("role", u.Role),
			slog.String("resource", resource),
			slog.String("action", action),
		)
		return fmt.Errorf("%w: role %q does not grant %s:%s", ErrPermissionDenied, u.Role, resource, action)
	}
	return nil
}

// assign makes role the only role of sub in dom.
func (a *Authorizer) assign(sub, role, dom string) error {
	a.mu.RLock()
	current := a.enforcer.GetRolesForUserInDomain(sub, dom)
	a.mu.RUnlock()
	if len(current) == 1 && current[0] == role {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	current = a.enforcer.GetRolesForUserInDomain(sub, dom)
	if len(current) == 1 && current[0] == role {
		return nil
	}
	if len(current) > 0 {
		if _, err := a.enforcer.RemoveFilteredGroupingPolicy(0, sub, "", dom); err != nil {
			return fmt.Errorf("clearing roles of %s: %w", sub, err)
		}
	}
	if _, err := a.enforcer.AddGroupingPolicy(sub, role, dom); err != nil {
		return fmt.Errorf("assigning role %q to %s: %w", role, sub, err)
	}
	return nil
}
