package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
)

func TestAuthService_Register_Success(t *testing.T) {
	f := newFixture(t)

	account, err := f.auth.Register(context.Background(), ports.RegisterInput{
		Username:   "alice",
		Password:   testPassword,
		EmployeeID: 1,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.ID == 0 {
		t.Fatalf("expected an allocated id")
	}
	if account.RoleID != domain.RoleUserID {
		t.Fatalf("self-registration must force the User role, got %d", account.RoleID)
	}
	if account.PasswordHash == testPassword {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(testPassword)); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		in    ports.RegisterInput
		field string
	}{
		"leading digit": {ports.RegisterInput{Username: "1alice", Password: testPassword, EmployeeID: 1}, "username"},
		"short password": {ports.RegisterInput{Username: "alice", Password: "Sh0rt!", EmployeeID: 1}, "password"},
		"no symbol":      {ports.RegisterInput{Username: "alice", Password: "NoSymbolsHere123", EmployeeID: 1}, "password"},
		"no employee":    {ports.RegisterInput{Username: "alice", Password: testPassword, EmployeeID: 99}, "employeeId"},
	}
	for name, tc := range cases {
		_, err := f.auth.Register(ctx, tc.in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
		if _, ok := verr.Fields[tc.field]; !ok {
			t.Fatalf("%s: expected field %s in %v", name, tc.field, verr.Fields)
		}
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := ports.RegisterInput{Username: "bob", Password: testPassword, EmployeeID: 1}

	if _, err := f.auth.Register(ctx, in); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	in.EmployeeID = 2
	if _, err := f.auth.Register(ctx, in); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_Register_ConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	const workers = 8
	for id := int64(4); id <= workers; id++ {
		f.employees.byID[id] = &domain.Employee{ID: id}
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Register(context.Background(), ports.RegisterInput{
				Username:   "racer",
				Password:   testPassword,
				EmployeeID: int64(i + 1),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrUsernameTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || taken != workers-1 {
		t.Fatalf("expected exactly one winner, got created=%d taken=%d", created, taken)
	}
}

func TestAuthService_Register_ConcurrentSameEmployee(t *testing.T) {
	f := newFixture(t)
	const workers = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.auth.Register(context.Background(), ports.RegisterInput{
				Username:   fmt.Sprintf("twin%d", i),
				Password:   testPassword,
				EmployeeID: 2,
			})
			mu.Lock()
			defer mu.Unlock()
			var verr *domain.ValidationError
			switch {
			case err == nil:
				created++
			case errors.As(err, &verr) && verr.Fields["employeeId"] != "":
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || rejected != workers-1 {
		t.Fatalf("expected one account for the employee, got created=%d rejected=%d", created, rejected)
	}
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "carol", 1, domain.RoleAdminID)

	token, err := f.auth.Authenticate(context.Background(), "carol", testPassword)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	claims, err := f.tokens.Validate(token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Subject != "carol" || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: sub=%s role=%s", claims.Subject, claims.Role)
	}
}

func TestAuthService_Authenticate_UniformFailure(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "dave", 1, domain.RoleUserID)
	ctx := context.Background()

	_, wrongPassword := f.auth.Authenticate(ctx, "dave", "Wr0ng-Passw0rd!")
	_, unknownUser := f.auth.Authenticate(ctx, "ghost", testPassword)
	_, empty := f.auth.Authenticate(ctx, "", "")

	for name, err := range map[string]error{"wrong password": wrongPassword, "unknown user": unknownUser, "empty": empty} {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("failure messages must not differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestAuthService_Authenticate_CaseSensitiveUsername(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "Erin", 1, domain.RoleUserID)

	if _, err := f.auth.Authenticate(context.Background(), "erin", testPassword); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_Lockout(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "frank", 1, domain.RoleUserID)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.auth.Authenticate(ctx, "frank", "Wr0ng-Passw0rd!"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := f.auth.Authenticate(ctx, "frank", testPassword); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts once locked, got %v", err)
	}

	// unknown usernames lock the same way
	for i := 0; i < 3; i++ {
		_, _ = f.auth.Authenticate(ctx, "nobody", testPassword)
	}
	if _, err := f.auth.Authenticate(ctx, "nobody", testPassword); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts for unknown user, got %v", err)
	}
}

func TestAuthService_Authenticate_SuccessResetsFailures(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "gina", 1, domain.RoleUserID)
	ctx := context.Background()

	_, _ = f.auth.Authenticate(ctx, "gina", "Wr0ng-Passw0rd!")
	_, _ = f.auth.Authenticate(ctx, "gina", "Wr0ng-Passw0rd!")
	if _, err := f.auth.Authenticate(ctx, "gina", testPassword); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if n := f.limiter.failures["gina"]; n != 0 {
		t.Fatalf("expected failures to be reset, got %d", n)
	}
}

func TestAuthService_Authenticate_RehashesWeakRecord(t *testing.T) {
	f := newFixture(t)
	account := f.seedAccount(t, "hank", 1, domain.RoleUserID)

	stronger := newTestHasher(t, bcrypt.MinCost+1)
	log := zerolog.Nop()
	svc := NewAuthService(f.accounts, f.employees, stronger, f.tokens, auth.NewGuard(log), nil, log)

	if _, err := svc.Authenticate(context.Background(), "hank", testPassword); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if f.accounts.hashWrites != 1 {
		t.Fatalf("expected one rehash write, got %d", f.accounts.hashWrites)
	}

	stored, _ := f.accounts.FindByID(context.Background(), account.ID)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	if err != nil || cost != bcrypt.MinCost+1 {
		t.Fatalf("expected stored cost %d, got %d (%v)", bcrypt.MinCost+1, cost, err)
	}

	// already upgraded: nothing more to write
	if _, err := svc.Authenticate(context.Background(), "hank", testPassword); err != nil {
		t.Fatalf("second Authenticate returned error: %v", err)
	}
	if f.accounts.hashWrites != 1 {
		t.Fatalf("expected no further rehash, got %d writes", f.accounts.hashWrites)
	}
}

func TestAuthService_Authenticate_RehashFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "ivy", 1, domain.RoleUserID)
	f.accounts.hashErr = errors.New("write conflict")

	stronger := newTestHasher(t, bcrypt.MinCost+1)
	log := zerolog.Nop()
	svc := NewAuthService(f.accounts, f.employees, stronger, f.tokens, auth.NewGuard(log), nil, log)

	if _, err := svc.Authenticate(context.Background(), "ivy", testPassword); err != nil {
		t.Fatalf("login must succeed when the rehash cannot be stored, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "jack", 2, domain.RoleUserID)
	ctx := context.Background()

	profile, err := f.auth.Me(ctx, claimsFor("jack", domain.RoleUser))
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if profile.Username != "jack" || profile.EmployeeID != 2 || profile.RoleName != domain.RoleUser {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := f.auth.Me(ctx, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.auth.Me(ctx, claimsFor("deleted", domain.RoleUser)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a vanished account, got %v", err)
	}
}

func TestAuthService_UpdateMe(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "kate", 1, domain.RoleUserID)
	f.seedAccount(t, "taken", 2, domain.RoleUserID)
	f.seedAccount(t, "root", 3, domain.RoleAdminID)
	ctx := context.Background()

	err := f.auth.UpdateMe(ctx, claimsFor("root", domain.RoleAdmin), ports.SelfUpdateInput{Username: "root2", Password: testPassword})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("admins must use the management surface, got %v", err)
	}

	err = f.auth.UpdateMe(ctx, claimsFor("kate", domain.RoleUser), ports.SelfUpdateInput{Username: "taken", Password: testPassword})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	var verr *domain.ValidationError
	err = f.auth.UpdateMe(ctx, claimsFor("kate", domain.RoleUser), ports.SelfUpdateInput{Username: "kate", Password: "weak"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	newPassword := "An0ther-Passw0rd?"
	if err := f.auth.UpdateMe(ctx, claimsFor("kate", domain.RoleUser), ports.SelfUpdateInput{Username: "katherine", Password: newPassword}); err != nil {
		t.Fatalf("UpdateMe returned error: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "katherine", newPassword); err != nil {
		t.Fatalf("new credentials must work: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "kate", testPassword); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old username must be gone, got %v", err)
	}
}
