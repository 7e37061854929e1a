// Package metrics defines and registers all custom Prometheus metrics for the
// device manager API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry on package init through
// promauto; HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "devicemanager"

// ── Identity metrics ─────────────────────────────────────────────────────────

// LoginAttemptsTotal counts authentication attempts.
// Label:
//   - result: "success", "invalid_credentials", "locked" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts self-registrations and admin-created accounts.
// Labels:
//   - source: "self" or "admin"
//   - result: "created", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_registrations_total",
		Help:      "Total number of account creation attempts.",
	},
	[]string{"source", "result"},
)

// PasswordRehashTotal counts transparent password upgrades after login.
// Label:
//   - result: "ok" or "failed"
var PasswordRehashTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_rehash_total",
		Help:      "Total number of password records re-hashed with current parameters.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer token checks.
// Label:
//   - result: "valid", "invalid" or "missing"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token validations, labelled by result.",
	},
	[]string{"result"},
)

// AuthorizationDecisionsTotal counts guard decisions.
// Labels:
//   - policy: the policy name (e.g. "admin_only")
//   - decision: "allow", "unauthenticated", "unauthorized" or "forbidden"
var AuthorizationDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_decisions_total",
		Help:      "Total number of authorization decisions, by policy and outcome.",
	},
	[]string{"policy", "decision"},
)

// ── Custody metrics ──────────────────────────────────────────────────────────

// CustodyResolutionsTotal counts current-custodian lookups.
// Label:
//   - result: "resolved", "unassigned" or "tie" (several rows share the latest issue date)
var CustodyResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "custody_resolutions_total",
		Help:      "Total number of device custodian resolutions, labelled by result.",
	},
	[]string{"result"},
)

// CustodyResolutionDuration measures a full resolution including store reads.
var CustodyResolutionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "custody_resolution_duration_seconds",
		Help:      "Duration of device custodian resolution, store reads included.",
		Buckets:   prometheus.DefBuckets,
	},
)
