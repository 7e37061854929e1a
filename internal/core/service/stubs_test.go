package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/custody"
	"github.com/devicemanager/api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

// stubAccountRepo enforces username and employee uniqueness under a lock, as
// the unique indexes do in Mongo.
type stubAccountRepo struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*domain.Account
	hashWrites int
	hashErr    error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[int64]*domain.Account)}
}

func (r *stubAccountRepo) taken(username string, except int64) bool {
	for _, a := range r.byID {
		if a.Username == username && a.ID != except {
			return true
		}
	}
	return false
}

func (r *stubAccountRepo) linked(employeeID, except int64) bool {
	for _, a := range r.byID {
		if a.EmployeeID == employeeID && a.ID != except {
			return true
		}
	}
	return false
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(a.Username, 0) {
		return nil, domain.ErrUsernameTaken
	}
	if r.linked(a.EmployeeID, 0) {
		return nil, domain.ErrEmployeeHasAccount
	}
	r.nextID++
	clone := *a
	clone.ID = r.nextID
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmployeeID(_ context.Context, employeeID int64) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.EmployeeID == employeeID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) List(context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubAccountRepo) Update(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	if r.taken(a.Username, a.ID) {
		return domain.ErrUsernameTaken
	}
	if r.linked(a.EmployeeID, a.ID) {
		return domain.ErrEmployeeHasAccount
	}
	clone := *a
	r.byID[a.ID] = &clone
	return nil
}

func (r *stubAccountRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hashErr != nil {
		return r.hashErr
	}
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	r.hashWrites++
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.byID, id)
	return nil
}

type stubRoleRepo struct{}

func (stubRoleRepo) Seed(context.Context) error { return nil }

func (stubRoleRepo) FindByID(_ context.Context, id int64) (*domain.Role, error) {
	role, ok := domain.RoleByID(id)
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return &role, nil
}

type stubEmployeeRepo struct {
	byID map[int64]*domain.Employee
}

func newStubEmployeeRepo(ids ...int64) *stubEmployeeRepo {
	r := &stubEmployeeRepo{byID: make(map[int64]*domain.Employee)}
	for _, id := range ids {
		r.byID[id] = &domain.Employee{
			ID:     id,
			Person: domain.Person{FirstName: "First", LastName: "Last"},
		}
	}
	return r
}

func (r *stubEmployeeRepo) FindByID(_ context.Context, id int64) (*domain.Employee, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEmployeeRepo) List(context.Context) ([]*domain.Employee, error) {
	out := make([]*domain.Employee, 0, len(r.byID))
	for _, e := range r.byID {
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubDeviceRepo struct {
	nextID int64
	byID   map[int64]*domain.Device
	types  map[string]*domain.DeviceType
}

func newStubDeviceRepo() *stubDeviceRepo {
	return &stubDeviceRepo{
		byID: make(map[int64]*domain.Device),
		types: map[string]*domain.DeviceType{
			"Laptop": {ID: 1, Name: "Laptop"},
			"PC":     {ID: 2, Name: "PC"},
		},
	}
}

func (r *stubDeviceRepo) put(d domain.Device) {
	r.byID[d.ID] = &d
	if d.ID > r.nextID {
		r.nextID = d.ID
	}
}

func (r *stubDeviceRepo) Create(_ context.Context, d *domain.Device) (*domain.Device, error) {
	r.nextID++
	clone := *d
	clone.ID = r.nextID
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubDeviceRepo) FindByID(_ context.Context, id int64) (*domain.Device, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *stubDeviceRepo) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Device, error) {
	out := []*domain.Device{}
	for _, id := range ids {
		if d, err := r.FindByID(ctx, id); err == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubDeviceRepo) List(ctx context.Context) ([]*domain.Device, error) {
	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return r.FindByIDs(ctx, ids)
}

func (r *stubDeviceRepo) Update(_ context.Context, d *domain.Device) error {
	if _, ok := r.byID[d.ID]; !ok {
		return domain.ErrDeviceNotFound
	}
	clone := *d
	r.byID[d.ID] = &clone
	return nil
}

func (r *stubDeviceRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrDeviceNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubDeviceRepo) FindTypeByName(_ context.Context, name string) (*domain.DeviceType, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, domain.ErrDeviceTypeNotFound
	}
	clone := *t
	return &clone, nil
}

type stubAssignmentRepo struct {
	rows []domain.DeviceAssignment
}

func (r *stubAssignmentRepo) ListByDevice(_ context.Context, deviceID int64) ([]domain.DeviceAssignment, error) {
	var out []domain.DeviceAssignment
	for _, row := range r.rows {
		if row.DeviceID == deviceID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubAssignmentRepo) ListByEmployee(_ context.Context, employeeID int64) ([]domain.DeviceAssignment, error) {
	var out []domain.DeviceAssignment
	for _, row := range r.rows {
		if row.EmployeeID == employeeID {
			out = append(out, row)
		}
	}
	return out, nil
}

// stubLimiter locks a username after max failures.
type stubLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
}

func newStubLimiter(max int) *stubLimiter {
	return &stubLimiter{max: max, failures: make(map[string]int)}
}

func (l *stubLimiter) Locked(_ context.Context, username string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[username] >= l.max, nil
}

func (l *stubLimiter) RecordFailure(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[username]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, username)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	testPassword = "Str0ng-Passw0rd!"
	testJWTKey   = "test-signing-key-0123456789abcdef"
)

func newTestHasher(t *testing.T, cost int) *auth.CredentialHasher {
	t.Helper()
	h, err := auth.NewCredentialHasher(cost)
	if err != nil {
		t.Fatalf("NewCredentialHasher: %v", err)
	}
	return h
}

func newTestTokens(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Issuer:            "devicemanager",
		Audience:          "devicemanager-clients",
		Key:               testJWTKey,
		ValidityInMinutes: 30,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return tokens
}

func claimsFor(username, role string) *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
}

type fixture struct {
	accounts    *stubAccountRepo
	employees   *stubEmployeeRepo
	devices     *stubDeviceRepo
	assignments *stubAssignmentRepo
	limiter     *stubLimiter
	hasher      *auth.CredentialHasher
	tokens      *auth.TokenIssuer

	auth     *AuthService
	account  *AccountService
	device   *DeviceService
	employee *EmployeeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts:    newStubAccountRepo(),
		employees:   newStubEmployeeRepo(1, 2, 3),
		devices:     newStubDeviceRepo(),
		assignments: &stubAssignmentRepo{},
		limiter:     newStubLimiter(3),
		hasher:      newTestHasher(t, bcrypt.MinCost),
		tokens:      newTestTokens(t),
	}

	log := zerolog.Nop()
	guard := auth.NewGuard(log)
	resolver := custody.NewResolver(f.devices, f.employees, f.assignments, log)

	f.auth = NewAuthService(f.accounts, f.employees, f.hasher, f.tokens, guard, f.limiter, log)
	f.account = NewAccountService(f.accounts, stubRoleRepo{}, f.employees, f.hasher, guard, log)
	f.device = NewDeviceService(f.devices, f.accounts, resolver, guard, log)
	f.employee = NewEmployeeService(f.employees, guard)
	return f
}

// seedAccount stores an account directly, bypassing validation.
func (f *fixture) seedAccount(t *testing.T, username string, employeeID, roleID int64) *domain.Account {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := f.accounts.Create(context.Background(), &domain.Account{
		Username:     username,
		PasswordHash: hash,
		EmployeeID:   employeeID,
		RoleID:       roleID,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}
