package handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/devicemanager/api/internal/core/domain"
	"github.com/devicemanager/api/internal/core/ports"
)

// errorResponse is the error envelope rendered by the HTTP error handler.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Accounts ---

type registerRequest struct {
	Username   string `json:"username"   validate:"required,username"`
	Password   string `json:"password"   validate:"required,password"`
	EmployeeID int64  `json:"employeeId" validate:"required,min=1"`
}

// loginRequest is deliberately not validated: every malformed login must
// fail with the same message as a wrong password.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type selfUpdateRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
}

type accountRequest struct {
	Username   string `json:"username"   validate:"required,username"`
	Password   string `json:"password"   validate:"required,password"`
	EmployeeID int64  `json:"employeeId" validate:"required,min=1"`
	RoleID     int64  `json:"roleId"     validate:"required,oneof=1 2"`
}

func (r accountRequest) input() ports.AccountInput {
	return ports.AccountInput{
		Username:   r.Username,
		Password:   r.Password,
		EmployeeID: r.EmployeeID,
		RoleID:     r.RoleID,
	}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type registeredResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	EmployeeID int64  `json:"employeeId"`
}

type profileResponse struct {
	Username   string `json:"username"`
	EmployeeID int64  `json:"employeeId"`
	RoleName   string `json:"roleName"`
}

type accountResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	EmployeeID int64  `json:"employeeId"`
	RoleID     int64  `json:"roleId"`
	RoleName   string `json:"roleName"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Username:   a.Username,
		EmployeeID: a.EmployeeID,
		RoleID:     a.RoleID,
		RoleName:   a.RoleName(),
	}
}

// --- Devices ---

// deviceRequest accepts additionalProperties either as a JSON object or as
// a string holding one.
type deviceRequest struct {
	Name                 string          `json:"name"           validate:"required,max=150"`
	DeviceTypeName       string          `json:"deviceTypeName" validate:"required"`
	IsEnabled            bool            `json:"isEnabled"`
	AdditionalProperties json.RawMessage `json:"additionalProperties" swaggertype:"object"`
}

func (r deviceRequest) input() ports.DeviceInput {
	return ports.DeviceInput{
		Name:           r.Name,
		DeviceTypeName: r.DeviceTypeName,
		IsEnabled:      r.IsEnabled,
		Properties:     propertiesText(r.AdditionalProperties),
	}
}

// propertiesText unwraps a JSON string and passes anything else through as
// text for the service to validate.
func propertiesText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return trimmed
}

type deviceSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deviceDetail struct {
	DeviceTypeName       string          `json:"deviceTypeName"`
	IsEnabled            bool            `json:"isEnabled"`
	AdditionalProperties json.RawMessage `json:"additionalProperties" swaggertype:"object"`
}

type deviceResponse struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	DeviceTypeName       string          `json:"deviceTypeName"`
	IsEnabled            bool            `json:"isEnabled"`
	AdditionalProperties json.RawMessage `json:"additionalProperties" swaggertype:"object"`
}

func toDeviceResponse(d *domain.Device) deviceResponse {
	return deviceResponse{
		ID:                   d.ID,
		Name:                 d.Name,
		DeviceTypeName:       d.DeviceTypeName,
		IsEnabled:            d.IsEnabled,
		AdditionalProperties: propertiesJSON(d.Properties),
	}
}

// propertiesJSON renders a stored blob as an embedded object. Stored blobs
// are validated on write; anything unreadable renders as {}.
func propertiesJSON(blob string) json.RawMessage {
	if !json.Valid([]byte(blob)) || !strings.HasPrefix(strings.TrimSpace(blob), "{") {
		return json.RawMessage(domain.EmptyProperties)
	}
	return json.RawMessage(blob)
}

// --- Employees ---

type employeeSummary struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
}

type employeeResponse struct {
	ID       int64           `json:"id"`
	Person   domain.Person   `json:"person"`
	Salary   float64         `json:"salary"`
	Position domain.Position `json:"position"`
	HireDate time.Time       `json:"hireDate"`
}
