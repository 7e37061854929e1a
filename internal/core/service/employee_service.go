package service

import (
	"context"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
)

// EmployeeService is the read-only employee directory. It carries salary and
// passport data, so it is administrator-only.
type EmployeeService struct {
	employees ports.EmployeeRepository
	guard     *auth.Guard
}

func NewEmployeeService(employees ports.EmployeeRepository, guard *auth.Guard) *EmployeeService {
	return &EmployeeService{employees: employees, guard: guard}
}

func (s *EmployeeService) List(ctx context.Context, claims *auth.Claims) ([]*domain.Employee, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.employees.List(ctx)
}

func (s *EmployeeService) Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Employee, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.employees.FindByID(ctx, id)
}
