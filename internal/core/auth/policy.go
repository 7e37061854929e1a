package auth

import (
	"context"

	"github.com/devicemanager/api/internal/core/domain"
)

// Predicate decides whether the claims' subject owns the resource an
// operation targets. It may consult a store, hence the context and error.
type Predicate func(ctx context.Context, claims *Claims) (bool, error)

// SubjectIs is satisfied when the token subject equals owner.
func SubjectIs(owner string) Predicate {
	return func(_ context.Context, claims *Claims) (bool, error) {
		return claims.Subject == owner, nil
	}
}

// Policy declares which roles may perform an operation and, for self-service
// operations, which ownership condition must hold. Policies are values: the
// modifier methods return modified copies.
type Policy struct {
	name        string
	roles       map[string]struct{}
	owner       Predicate
	adminBypass bool
}

// Roles returns a policy that admits exactly the listed roles.
func Roles(name string, roles ...string) Policy {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Policy{name: name, roles: set}
}

// OwnedBy turns p into a self-service policy guarded by pred.
func (p Policy) OwnedBy(pred Predicate) Policy {
	p.owner = pred
	return p
}

// AdminBypass lets the Admin role skip the ownership predicate. It is never
// inferred; a policy without it applies ownership to every role.
func (p Policy) AdminBypass() Policy {
	p.adminBypass = true
	return p
}

// Name identifies the policy in logs and metrics.
func (p Policy) Name() string {
	return p.name
}

// Allows reports whether role is in the policy's allow-set.
func (p Policy) Allows(role string) bool {
	_, ok := p.roles[role]
	return ok
}

// SelfService reports whether the policy carries an ownership predicate.
func (p Policy) SelfService() bool {
	return p.owner != nil
}

var (
	AdminOnly  = Roles("admin_only", domain.RoleAdmin)
	AnyAccount = Roles("any_account", domain.RoleAdmin, domain.RoleUser)
	UserOnly   = Roles("user_only", domain.RoleUser)
)
