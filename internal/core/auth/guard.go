package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/metrics"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Unauthorized
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	default:
		return "forbidden"
	}
}

// Err maps a denial to its domain error; Allow maps to nil.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case Unauthenticated:
		return domain.ErrUnauthenticated
	case Unauthorized:
		return domain.ErrUnauthorized
	default:
		return domain.ErrForbidden
	}
}

// Guard evaluates policies against validated claims. It holds no per-request state.
type Guard struct {
	log zerolog.Logger
}

func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{log: log}
}

// Authorize decides in a fixed order: missing claims, role membership,
// ownership. The error is non-nil only when the ownership predicate itself
// failed, in which case the decision is meaningless.
func (g *Guard) Authorize(ctx context.Context, claims *Claims, p Policy) (Decision, error) {
	d, err := g.decide(ctx, claims, p)
	if err != nil {
		return Forbidden, fmt.Errorf("authorize %s: %w", p.name, err)
	}

	metrics.AuthorizationDecisionsTotal.WithLabelValues(p.name, d.String()).Inc()
	if d != Allow {
		ev := g.log.Debug().Str("policy", p.name).Str("decision", d.String())
		if claims != nil {
			ev = ev.Str("subject", claims.Subject).Str("role", claims.Role)
		}
		ev.Msg("authorization denied")
	}
	return d, nil
}

// Check is Authorize folded into a single error for service code.
func (g *Guard) Check(ctx context.Context, claims *Claims, p Policy) error {
	d, err := g.Authorize(ctx, claims, p)
	if err != nil {
		return err
	}
	return d.Err()
}

func (g *Guard) decide(ctx context.Context, claims *Claims, p Policy) (Decision, error) {
	if claims == nil || claims.Subject == "" {
		return Unauthenticated, nil
	}
	if !p.Allows(claims.Role) {
		return Unauthorized, nil
	}
	if p.owner == nil {
		return Allow, nil
	}
	if p.adminBypass && claims.Role == domain.RoleAdmin {
		return Allow, nil
	}

	owns, err := p.owner(ctx, claims)
	if err != nil {
		return Forbidden, err
	}
	if !owns {
		return Forbidden, nil
	}
	return Allow, nil
}
