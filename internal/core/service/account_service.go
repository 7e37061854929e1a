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

// AccountService is the administrator's account management surface.
type AccountService struct {
	accounts *accountWriter
	roles    ports.RoleRepository
	guard    *auth.Guard
	log      zerolog.Logger
}

func NewAccountService(
	accounts ports.AccountRepository,
	roles ports.RoleRepository,
	employees ports.EmployeeRepository,
	hasher *auth.CredentialHasher,
	guard *auth.Guard,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: &accountWriter{repo: accounts, employees: employees, hasher: hasher},
		roles:    roles,
		guard:    guard,
		log:      log,
	}
}

func (s *AccountService) List(ctx context.Context, claims *auth.Claims) ([]*domain.Account, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.accounts.repo.List(ctx)
}

func (s *AccountService) Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Account, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.accounts.repo.FindByID(ctx, id)
}

// Create adds an account with any seeded role.
func (s *AccountService) Create(ctx context.Context, claims *auth.Claims, in ports.AccountInput) (*domain.Account, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return nil, err
	}

	created, err := s.accounts.create(ctx, in)
	metrics.RegistrationsTotal.WithLabelValues("admin", registrationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", created.ID).
		Int64("role_id", created.RoleID).
		Str("by", claims.Subject).
		Msg("account created")
	return created, nil
}

// Update replaces every field of account id. The password is re-hashed.
func (s *AccountService) Update(ctx context.Context, claims *auth.Claims, id int64, in ports.AccountInput) (*domain.Account, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}

	existing, err := s.accounts.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateCredentials(in.Username, in.Password); err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return nil, err
	}
	if err := s.accounts.checkEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	if err := s.accounts.ensureUsernameFree(ctx, in.Username, existing.ID); err != nil {
		return nil, err
	}
	if err := s.accounts.ensureEmployeeFree(ctx, in.EmployeeID, existing.ID); err != nil {
		return nil, err
	}

	hash, err := s.accounts.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	updated := &domain.Account{
		ID:           existing.ID,
		Username:     in.Username,
		PasswordHash: hash,
		EmployeeID:   in.EmployeeID,
		RoleID:       in.RoleID,
	}
	if err := s.accounts.repo.Update(ctx, updated); err != nil {
		return nil, storeConflict(err)
	}

	s.log.Info().Int64("account_id", id).Str("by", claims.Subject).Msg("account updated")
	return updated, nil
}

func (s *AccountService) Delete(ctx context.Context, claims *auth.Claims, id int64) error {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return err
	}
	if err := s.accounts.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Int64("account_id", id).Str("by", claims.Subject).Msg("account deleted")
	return nil
}

func (s *AccountService) checkRole(ctx context.Context, roleID int64) error {
	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return domain.NewValidationError("roleId", "role not found")
		}
		return fmt.Errorf("check role: %w", err)
	}
	return nil
}

// accountWriter holds the write path shared by self-registration and
// administrator account creation.
type accountWriter struct {
	repo      ports.AccountRepository
	employees ports.EmployeeRepository
	hasher    *auth.CredentialHasher
}

func (w *accountWriter) create(ctx context.Context, in ports.AccountInput) (*domain.Account, error) {
	if err := domain.ValidateCredentials(in.Username, in.Password); err != nil {
		return nil, err
	}
	if err := w.checkEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}
	if err := w.ensureUsernameFree(ctx, in.Username, 0); err != nil {
		return nil, err
	}
	if err := w.ensureEmployeeFree(ctx, in.EmployeeID, 0); err != nil {
		return nil, err
	}

	hash, err := w.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	// The unique indexes still decide a race between two writers that both
	// passed the checks above.
	created, err := w.repo.Create(ctx, &domain.Account{
		Username:     in.Username,
		PasswordHash: hash,
		EmployeeID:   in.EmployeeID,
		RoleID:       in.RoleID,
	})
	if err != nil {
		return nil, storeConflict(err)
	}
	return created, nil
}

func (w *accountWriter) checkEmployee(ctx context.Context, employeeID int64) error {
	if _, err := w.employees.FindByID(ctx, employeeID); err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return domain.NewValidationError("employeeId", "employee not found")
		}
		return fmt.Errorf("check employee: %w", err)
	}
	return nil
}

// ensureUsernameFree fails with ErrUsernameTaken when username belongs to an
// account other than self.
func (w *accountWriter) ensureUsernameFree(ctx context.Context, username string, self int64) error {
	other, err := w.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check username: %w", err)
	case other.ID != self:
		return domain.ErrUsernameTaken
	}
	return nil
}

// ensureEmployeeFree rejects linking employeeID to a second account.
func (w *accountWriter) ensureEmployeeFree(ctx context.Context, employeeID, self int64) error {
	other, err := w.repo.FindByEmployeeID(ctx, employeeID)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check employee account: %w", err)
	case other.ID != self:
		return employeeTaken()
	}
	return nil
}

func employeeTaken() error {
	return domain.NewValidationError("employeeId", "employee already has an account")
}

func storeConflict(err error) error {
	if errors.Is(err, domain.ErrEmployeeHasAccount) {
		return employeeTaken()
	}
	return err
}

func registrationResult(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrUsernameTaken):
		return "conflict"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
