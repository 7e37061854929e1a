package domain

// Role identifiers match the rows seeded into the roles collection at startup.
const (
	RoleAdminID int64 = 1
	RoleUserID  int64 = 2
)

// Role names as carried in the token "role" claim.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Role is one entry of the fixed role universe.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Roles is the complete role universe. There is no dynamic role creation.
var Roles = []Role{
	{ID: RoleAdminID, Name: RoleAdmin},
	{ID: RoleUserID, Name: RoleUser},
}

// RoleByID looks up a role in the fixed universe.
func RoleByID(id int64) (Role, bool) {
	for _, r := range Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// Account is a login identity bound to exactly one employee and one role.
// PasswordHash is a self-describing bcrypt record, never plaintext.
type Account struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	EmployeeID   int64  `json:"employeeId"`
	RoleID       int64  `json:"roleId"`
}

// RoleName returns the name of the account's role, or "" for an unknown role id.
func (a *Account) RoleName() string {
	r, _ := RoleByID(a.RoleID)
	return r.Name
}
