package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// VerifyResult is the outcome of checking a password against a stored record.
type VerifyResult int

const (
	VerifyFailed VerifyResult = iota
	VerifySuccess
	// VerifySuccessNeedsUpgrade means the password matched but the record was
	// produced with a weaker cost; the caller should re-hash and persist.
	VerifySuccessNeedsUpgrade
)

func (r VerifyResult) String() string {
	switch r {
	case VerifySuccess:
		return "success"
	case VerifySuccessNeedsUpgrade:
		return "success_needs_upgrade"
	default:
		return "failed"
	}
}

// Ok reports whether the password matched.
func (r VerifyResult) Ok() bool {
	return r == VerifySuccess || r == VerifySuccessNeedsUpgrade
}

// CredentialHasher hashes and verifies passwords with bcrypt. Each record
// embeds the algorithm version, the cost and a fresh random salt.
type CredentialHasher struct {
	cost  int
	dummy []byte
}

// NewCredentialHasher builds a hasher for the given bcrypt cost. A cost of 0
// selects bcrypt.DefaultCost.
func NewCredentialHasher(cost int) (*CredentialHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, &ConfigurationError{
			Setting: "BCRYPT_COST",
			Reason:  fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost),
		}
	}

	// Compared against when the username does not exist, so that path pays
	// the same bcrypt work as a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-account-placeholder"), cost)
	if err != nil {
		return nil, fmt.Errorf("hasher: prepare dummy record: %w", err)
	}

	return &CredentialHasher{cost: cost, dummy: dummy}, nil
}

// Cost returns the configured bcrypt cost.
func (h *CredentialHasher) Cost() int {
	return h.cost
}

// Hash returns a new self-contained record for plaintext.
func (h *CredentialHasher) Hash(plaintext string) (string, error) {
	record, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(record), nil
}

// Verify checks plaintext against record. A malformed record never matches.
func (h *CredentialHasher) Verify(record, plaintext string) VerifyResult {
	if err := bcrypt.CompareHashAndPassword([]byte(record), []byte(plaintext)); err != nil {
		return VerifyFailed
	}

	cost, err := bcrypt.Cost([]byte(record))
	if err != nil {
		return VerifyFailed
	}
	if cost < h.cost {
		return VerifySuccessNeedsUpgrade
	}
	return VerifySuccess
}

// VerifyUnknown spends one comparison against the dummy record and always fails.
func (h *CredentialHasher) VerifyUnknown(plaintext string) VerifyResult {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return VerifyFailed
}
