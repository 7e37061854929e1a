package ports

import (
	"context"

	"github.com/devicemanager/api/internal/core/domain"
)

// AccountRepository persists accounts. Username and employee uniqueness are
// enforced by the store: Create and Update return domain.ErrUsernameTaken or
// domain.ErrEmployeeHasAccount on a collision.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmployeeID(ctx context.Context, employeeID int64) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	// UpdatePasswordHash replaces only the stored hash, used for transparent rehashing.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// RoleRepository exposes the seeded role table.
type RoleRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (*domain.Role, error)
}

// EmployeeRepository reads employees together with their person and position.
type EmployeeRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Employee, error)
	List(ctx context.Context) ([]*domain.Employee, error)
}

// DeviceRepository persists devices and resolves device types.
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) (*domain.Device, error)
	FindByID(ctx context.Context, id int64) (*domain.Device, error)
	// FindByIDs returns the devices that exist among ids, ordered by id.
	FindByIDs(ctx context.Context, ids []int64) ([]*domain.Device, error)
	List(ctx context.Context) ([]*domain.Device, error)
	Update(ctx context.Context, device *domain.Device) error
	Delete(ctx context.Context, id int64) error
	FindTypeByName(ctx context.Context, name string) (*domain.DeviceType, error)
}

// AssignmentRepository is a read-only view of the custody history. Rows are
// produced by a provisioning workflow outside this service.
type AssignmentRepository interface {
	ListByDevice(ctx context.Context, deviceID int64) ([]domain.DeviceAssignment, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]domain.DeviceAssignment, error)
}

// LoginLimiter throttles repeated failed logins per username.
type LoginLimiter interface {
	Locked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
