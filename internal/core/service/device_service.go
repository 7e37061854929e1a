package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/custody"
	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
)

// DeviceService manages the device catalogue and serves the caller's own
// devices. Reads merge the current custodian into the property blob.
type DeviceService struct {
	devices  ports.DeviceRepository
	accounts ports.AccountRepository
	resolver *custody.Resolver
	guard    *auth.Guard
	log      zerolog.Logger
}

func NewDeviceService(
	devices ports.DeviceRepository,
	accounts ports.AccountRepository,
	resolver *custody.Resolver,
	guard *auth.Guard,
	log zerolog.Logger,
) *DeviceService {
	return &DeviceService{
		devices:  devices,
		accounts: accounts,
		resolver: resolver,
		guard:    guard,
		log:      log,
	}
}

// List returns every device without resolving custody.
func (s *DeviceService) List(ctx context.Context, claims *auth.Claims) ([]*domain.Device, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.devices.List(ctx)
}

func (s *DeviceService) Get(ctx context.Context, claims *auth.Claims, id int64) (*domain.Device, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}
	return s.resolver.ResolveDevice(ctx, id)
}

func (s *DeviceService) Create(ctx context.Context, claims *auth.Claims, in ports.DeviceInput) (*domain.Device, error) {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return nil, err
	}

	device, err := s.build(ctx, 0, in)
	if err != nil {
		return nil, err
	}

	created, err := s.devices.Create(ctx, device)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("device_id", created.ID).Str("by", claims.Subject).Msg("device created")
	return created, nil
}

func (s *DeviceService) Update(ctx context.Context, claims *auth.Claims, id int64, in ports.DeviceInput) error {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return err
	}
	if err := s.update(ctx, id, in); err != nil {
		return err
	}

	s.log.Info().Int64("device_id", id).Str("by", claims.Subject).Msg("device updated")
	return nil
}

func (s *DeviceService) Delete(ctx context.Context, claims *auth.Claims, id int64) error {
	if err := s.guard.Check(ctx, claims, auth.AdminOnly); err != nil {
		return err
	}
	if err := s.devices.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Int64("device_id", id).Str("by", claims.Subject).Msg("device deleted")
	return nil
}

// MyDevices returns every device ever assigned to the caller's employee,
// including ones since handed to someone else.
func (s *DeviceService) MyDevices(ctx context.Context, claims *auth.Claims) ([]*domain.Device, error) {
	var account *domain.Account
	if err := s.guard.Check(ctx, claims, auth.AnyAccount.OwnedBy(s.caller(&account))); err != nil {
		return nil, err
	}

	ids, err := s.resolver.DevicesForEmployee(ctx, account.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.Device{}, nil
	}

	devices, err := s.devices.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("my devices: %w", err)
	}
	for _, d := range devices {
		custodian, err := s.resolver.ResolveCurrent(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		d.Properties = custody.MergeCustodian(d.Properties, custodian)
	}
	return devices, nil
}

// UpdateMyDevice lets a caller edit a device their employee was ever
// assigned. Administrators get no bypass here.
func (s *DeviceService) UpdateMyDevice(ctx context.Context, claims *auth.Claims, id int64, in ports.DeviceInput) error {
	policy := auth.AnyAccount.OwnedBy(s.heldDevice(id))
	if err := s.guard.Check(ctx, claims, policy); err != nil {
		return err
	}
	if err := s.update(ctx, id, in); err != nil {
		return err
	}

	s.log.Info().Int64("device_id", id).Str("by", claims.Subject).Msg("device updated by holder")
	return nil
}

// caller is satisfied while the token subject still has an account, which it
// loads into dst.
func (s *DeviceService) caller(dst **domain.Account) auth.Predicate {
	return func(ctx context.Context, claims *auth.Claims) (bool, error) {
		account, err := s.accounts.FindByUsername(ctx, claims.Subject)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		*dst = account
		return true, nil
	}
}

// heldDevice is satisfied when any assignment row ties deviceID to the
// employee behind the token subject.
func (s *DeviceService) heldDevice(deviceID int64) auth.Predicate {
	return func(ctx context.Context, claims *auth.Claims) (bool, error) {
		account, err := s.accounts.FindByUsername(ctx, claims.Subject)
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		_, held, err := s.resolver.DeviceForEmployee(ctx, account.EmployeeID, deviceID)
		return held, err
	}
}

func (s *DeviceService) update(ctx context.Context, id int64, in ports.DeviceInput) error {
	if _, err := s.devices.FindByID(ctx, id); err != nil {
		return err
	}

	device, err := s.build(ctx, id, in)
	if err != nil {
		return err
	}
	return s.devices.Update(ctx, device)
}

// build validates in and resolves its device type.
func (s *DeviceService) build(ctx context.Context, id int64, in ports.DeviceInput) (*domain.Device, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(in.Name) > domain.MaxDeviceNameLength:
		fields["name"] = "must be at most 150 characters"
	}
	if strings.TrimSpace(in.DeviceTypeName) == "" {
		fields["deviceTypeName"] = "is required"
	}
	if !custody.IsObject(in.Properties) {
		fields["additionalProperties"] = "must be a JSON object"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	deviceType, err := s.devices.FindTypeByName(ctx, in.DeviceTypeName)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceTypeNotFound) {
			return nil, domain.NewValidationError("deviceTypeName", "device type not found")
		}
		return nil, fmt.Errorf("resolve device type: %w", err)
	}

	return &domain.Device{
		ID:             id,
		Name:           in.Name,
		DeviceTypeID:   deviceType.ID,
		DeviceTypeName: deviceType.Name,
		IsEnabled:      in.IsEnabled,
		Properties:     custody.WithoutCustodian(in.Properties),
	}, nil
}
