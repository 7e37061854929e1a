package ports

import (
	"context"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
)

// RegisterInput is the self-registration payload. The role is always User.
type RegisterInput struct {
	Username   string
	Password   string
	EmployeeID int64
}

// SelfUpdateInput carries the fields an account owner may change.
type SelfUpdateInput struct {
	Username string
	Password string
}

// AccountInput is the administrator's view of an account write.
type AccountInput struct {
	Username   string
	Password   string
	EmployeeID int64
	RoleID     int64
}

// AccountProfile is what an account holder sees about themselves.
type AccountProfile struct {
	Username   string
	EmployeeID int64
	RoleName   string
}

// DeviceInput is a device write. Properties may be empty, meaning "{}".
type DeviceInput struct {
	Name           string
	DeviceTypeName string
	IsEnabled      bool
	Properties     string
}

// AuthService covers registration, login and self-service on the caller's account.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, claims *auth.Claims) (*AccountProfile, error)
	UpdateMe(ctx context.Context, claims *auth.Claims, in SelfUpdateInput) error
}

// AccountService is the administrator surface over accounts.
type AccountService interface {
	List(ctx context.Context, claims *auth.Claims) ([]*domain.Account, error)
	Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Account, error)
	Create(ctx context.Context, claims *auth.Claims, in AccountInput) (*domain.Account, error)
	Update(ctx context.Context, claims *auth.Claims, id int64, in AccountInput) (*domain.Account, error)
	Delete(ctx context.Context, claims *auth.Claims, id int64) error
}

// DeviceService covers administrator device management and the "my devices" views.
type DeviceService interface {
	List(ctx context.Context, claims *auth.Claims) ([]*domain.Device, error)
	Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Device, error)
	Create(ctx context.Context, claims *auth.Claims, in DeviceInput) (*domain.Device, error)
	Update(ctx context.Context, claims *auth.Claims, id int64, in DeviceInput) error
	Delete(ctx context.Context, claims *auth.Claims, id int64) error
	MyDevices(ctx context.Context, claims *auth.Claims) ([]*domain.Device, error)
	UpdateMyDevice(ctx context.Context, claims *auth.Claims, id int64, in DeviceInput) error
}

// EmployeeService is the read-only employee directory.
type EmployeeService interface {
	List(ctx context.Context, claims *auth.Claims) ([]*domain.Employee, error)
	Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Employee, error)
}
