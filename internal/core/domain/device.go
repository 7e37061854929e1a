package domain

import "time"

// EmptyProperties is the default value of a device's property blob.
const EmptyProperties = "{}"

// CustodianKey is the reserved property-blob key the resolver writes the
// current custodian under. Any stored value under this key is replaced.
const CustodianKey = "currentEmployee"

// Device is a piece of equipment. Properties is an opaque JSON object kept
// as its serialized text.
type Device struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	DeviceTypeID   int64  `json:"deviceTypeId,omitempty"`
	DeviceTypeName string `json:"deviceTypeName"`
	IsEnabled      bool   `json:"isEnabled"`
	Properties     string `json:"additionalProperties"`
}

// DeviceType classifies devices.
type DeviceType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeviceAssignment is one custody event in the append-oriented history.
// There is no return event; custody at any instant is derived.
type DeviceAssignment struct {
	ID         int64     `json:"id"`
	DeviceID   int64     `json:"deviceId"`
	EmployeeID int64     `json:"employeeId"`
	IssueDate  time.Time `json:"issueDate"`
}

// Custodian is the employee resolved as currently holding a device.
type Custodian struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
