package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
	"github.com/devicemanager/api/internal/metrics"
)

// AuthService implements registration, login and self-service on the
// caller's own account.
type AuthService struct {
	accounts *accountWriter
	hasher   *auth.CredentialHasher
	tokens   *auth.TokenIssuer
	guard    *auth.Guard
	limiter  ports.LoginLimiter
	log      zerolog.Logger
}

// NewAuthService wires the service. A nil limiter disables lockout.
func NewAuthService(
	accounts ports.AccountRepository,
	employees ports.EmployeeRepository,
	hasher *auth.CredentialHasher,
	tokens *auth.TokenIssuer,
	guard *auth.Guard,
	limiter ports.LoginLimiter,
	log zerolog.Logger,
) *AuthService {
	if limiter == nil {
		limiter = noopLimiter{}
	}
	return &AuthService{
		accounts: &accountWriter{repo: accounts, employees: employees, hasher: hasher},
		hasher:   hasher,
		tokens:   tokens,
		guard:    guard,
		limiter:  limiter,
		log:      log,
	}
}

// Register creates a User-role account bound to an existing employee.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	created, err := s.accounts.create(ctx, ports.AccountInput{
		Username:   in.Username,
		Password:   in.Password,
		EmployeeID: in.EmployeeID,
		RoleID:     domain.RoleUserID,
	})
	metrics.RegistrationsTotal.WithLabelValues("self", registrationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("account_id", created.ID).Str("username", created.Username).Msg("account registered")
	return created, nil
}

// Authenticate verifies credentials and returns a signed access token. An
// unknown username and a wrong password produce the same error after the
// same amount of hashing work.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", domain.ErrInvalidCredentials
	}

	locked, err := s.limiter.Locked(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter check failed, continuing")
	} else if locked {
		metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		return "", domain.ErrTooManyAttempts
	}

	account, err := s.accounts.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.hasher.VerifyUnknown(password)
			return "", s.rejectLogin(ctx, username)
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("authenticate: %w", err)
	}

	result := s.hasher.Verify(account.PasswordHash, password)
	if !result.Ok() {
		return "", s.rejectLogin(ctx, username)
	}
	if result == auth.VerifySuccessNeedsUpgrade {
		s.upgradeHash(ctx, account, password)
	}

	role := account.RoleName()
	if role == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("authenticate: account %d: %w", account.ID, domain.ErrRoleNotFound)
	}

	token, err := s.tokens.Issue(account.Username, role)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("authenticate: %w", err)
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.log.Warn().Err(err).Msg("login limiter reset failed")
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("username", account.Username).Str("role", role).Msg("login succeeded")

	return token, nil
}

// Me returns the caller's own profile.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*ports.AccountProfile, error) {
	var account *domain.Account
	if err := s.guard.Check(ctx, claims, auth.AnyAccount.OwnedBy(s.ownAccount(&account))); err != nil {
		return nil, err
	}

	return &ports.AccountProfile{
		Username:   account.Username,
		EmployeeID: account.EmployeeID,
		RoleName:   account.RoleName(),
	}, nil
}

// UpdateMe changes the caller's username and password. Only the User role
// may do this; administrators use the account management surface.
func (s *AuthService) UpdateMe(ctx context.Context, claims *auth.Claims, in ports.SelfUpdateInput) error {
	var account *domain.Account
	if err := s.guard.Check(ctx, claims, auth.UserOnly.OwnedBy(s.ownAccount(&account))); err != nil {
		return err
	}

	if err := domain.ValidateCredentials(in.Username, in.Password); err != nil {
		return err
	}
	if err := s.accounts.ensureUsernameFree(ctx, in.Username, account.ID); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("update own account: %w", err)
	}

	updated := *account
	updated.Username = in.Username
	updated.PasswordHash = hash
	if err := s.accounts.repo.Update(ctx, &updated); err != nil {
		return fmt.Errorf("update own account: %w", err)
	}

	s.log.Info().Int64("account_id", account.ID).Msg("account updated by owner")
	return nil
}

// ownAccount is the "subject owns this account" predicate. It loads the
// account named by the token subject into dst as a side effect.
func (s *AuthService) ownAccount(dst **domain.Account) auth.Predicate {
	return func(ctx context.Context, claims *auth.Claims) (bool, error) {
		account, err := s.accounts.repo.FindByUsername(ctx, claims.Subject)
		if errors.Is(err, domain.ErrAccountNotFound) {
			// token outlived its account
			return false, nil
		}
		if err != nil {
			return false, err
		}
		*dst = account
		return auth.SubjectIs(account.Username)(ctx, claims)
	}
}

func (s *AuthService) rejectLogin(ctx context.Context, username string) error {
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Msg("login limiter record failed")
	}
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	return domain.ErrInvalidCredentials
}

// upgradeHash re-hashes a password verified against an outdated record.
// Failure leaves the old record in place and does not fail the login.
func (s *AuthService) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.repo.UpdatePasswordHash(ctx, account.ID, hash)
	}
	if err != nil {
		metrics.PasswordRehashTotal.WithLabelValues("failed").Inc()
		s.log.Warn().Err(err).Int64("account_id", account.ID).Msg("password rehash failed")
		return
	}

	account.PasswordHash = hash
	metrics.PasswordRehashTotal.WithLabelValues("ok").Inc()
	s.log.Info().Int64("account_id", account.ID).Int("cost", s.hasher.Cost()).Msg("password rehashed")
}

type noopLimiter struct{}

func (noopLimiter) Locked(context.Context, string) (bool, error) { return false, nil }
func (noopLimiter) RecordFailure(context.Context, string) error  { return nil }
func (noopLimiter) Reset(context.Context, string) error          { return nil }
