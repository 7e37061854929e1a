package domain

import "time"

// Person holds the personal record an employee references.
type Person struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MiddleName     string `json:"middleName,omitempty"`
	PassportNumber string `json:"passportNumber"`
	PhoneNumber    string `json:"phoneNumber"`
	Email          string `json:"email"`
}

// Position is a job title.
type Position struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Employee references one person and one position by value; there are no
// back-references to accounts or assignments.
type Employee struct {
	ID       int64     `json:"id"`
	Person   Person    `json:"person"`
	Position Position  `json:"position"`
	Salary   float64   `json:"salary"`
	HireDate time.Time `json:"hireDate"`
}

// FullName joins first and last name the way listings present it.
func (e *Employee) FullName() string {
	return e.Person.FirstName + " " + e.Person.LastName
}
