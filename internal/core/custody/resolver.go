// Package custody derives who currently holds a device from its assignment
// history. Nothing here is cached: every answer comes from a fresh read.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
	"github.com/devicemanager/api/internal/metrics"
)

// Resolver answers custody questions over the assignment history.
//
// Single-device lookups report the current custodian only, while the
// by-employee lookups cover the full history: an employee keeps access to
// every device they were ever assigned.
type Resolver struct {
	devices     ports.DeviceRepository
	employees   ports.EmployeeRepository
	assignments ports.AssignmentRepository
	log         zerolog.Logger
}

func NewResolver(
	devices ports.DeviceRepository,
	employees ports.EmployeeRepository,
	assignments ports.AssignmentRepository,
	log zerolog.Logger,
) *Resolver {
	return &Resolver{
		devices:     devices,
		employees:   employees,
		assignments: assignments,
		log:         log,
	}
}

// ResolveCurrent returns the custodian of deviceID, or nil when the device
// has never been assigned.
func (r *Resolver) ResolveCurrent(ctx context.Context, deviceID int64) (*domain.Custodian, error) {
	start := time.Now()
	defer func() { metrics.CustodyResolutionDuration.Observe(time.Since(start).Seconds()) }()

	rows, err := r.assignments.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve custodian: list assignments: %w", err)
	}

	latest, tied := Latest(rows)
	if latest == nil {
		metrics.CustodyResolutionsTotal.WithLabelValues("unassigned").Inc()
		return nil, nil
	}
	if tied {
		metrics.CustodyResolutionsTotal.WithLabelValues("tie").Inc()
		r.log.Debug().
			Int64("device_id", deviceID).
			Int64("assignment_id", latest.ID).
			Msg("several assignments share the latest issue date, highest id wins")
	}

	emp, err := r.employees.FindByID(ctx, latest.EmployeeID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			// Dangling history row: report the device as unassigned.
			r.log.Warn().
				Int64("device_id", deviceID).
				Int64("employee_id", latest.EmployeeID).
				Msg("assignment references a missing employee")
			metrics.CustodyResolutionsTotal.WithLabelValues("unassigned").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("resolve custodian: load employee: %w", err)
	}

	metrics.CustodyResolutionsTotal.WithLabelValues("resolved").Inc()
	return &domain.Custodian{
		ID:        emp.ID,
		FirstName: emp.Person.FirstName,
		LastName:  emp.Person.LastName,
	}, nil
}

// ResolveDevice loads a device and merges its current custodian into the
// property blob under domain.CustodianKey.
func (r *Resolver) ResolveDevice(ctx context.Context, deviceID int64) (*domain.Device, error) {
	device, err := r.devices.FindByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	custodian, err := r.ResolveCurrent(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	device.Properties = MergeCustodian(device.Properties, custodian)
	return device, nil
}

// DevicesForEmployee returns, in ascending order, every device any history
// row ties to employeeID, whether or not they still hold it.
func (r *Resolver) DevicesForEmployee(ctx context.Context, employeeID int64) ([]int64, error) {
	rows, err := r.assignments.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("devices for employee: %w", err)
	}

	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.DeviceID]; ok {
			continue
		}
		seen[row.DeviceID] = struct{}{}
		ids = append(ids, row.DeviceID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// DeviceForEmployee returns deviceID if employeeID was ever assigned it.
// The boolean is false when there is no such history row or the device is gone.
func (r *Resolver) DeviceForEmployee(ctx context.Context, employeeID, deviceID int64) (*domain.Device, bool, error) {
	rows, err := r.assignments.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, false, fmt.Errorf("device for employee: %w", err)
	}

	held := false
	for _, row := range rows {
		if row.DeviceID == deviceID {
			held = true
			break
		}
	}
	if !held {
		return nil, false, nil
	}

	device, err := r.devices.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("device for employee: %w", err)
	}
	return device, true, nil
}

// Latest picks the row with the greatest issue date. Rows sharing that date
// are broken by the highest assignment id; tied reports whether that happened.
func Latest(rows []domain.DeviceAssignment) (latest *domain.DeviceAssignment, tied bool) {
	for i := range rows {
		row := &rows[i]
		switch {
		case latest == nil:
			latest = row
		case row.IssueDate.After(latest.IssueDate):
			latest, tied = row, false
		case row.IssueDate.Equal(latest.IssueDate):
			tied = true
			if row.ID > latest.ID {
				latest = row
			}
		}
	}
	return latest, tied
}
