package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/domain"
)

type stubEmployeeService struct {
	employees []*domain.Employee
}

func (s *stubEmployeeService) List(context.Context, *auth.Claims) ([]*domain.Employee, error) {
	return s.employees, nil
}

func (s *stubEmployeeService) Get(_ context.Context, _ *auth.Claims, id int64) (*domain.Employee, error) {
	for _, e := range s.employees {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func testEmployees() *stubEmployeeService {
	return &stubEmployeeService{employees: []*domain.Employee{
		{ID: 1, Person: domain.Person{FirstName: "Ada", LastName: "Lovelace"}, Position: domain.Position{ID: 1, Name: "Analyst"}},
		{ID: 2, Person: domain.Person{FirstName: "Alan", LastName: "Turing"}, Salary: 5400, HireDate: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
}

func TestEmployeeHandler_List(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/employees", "")
	withClaims(c, "root", domain.RoleAdmin)

	if err := NewEmployeeHandler(testEmployees()).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []employeeSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 || resp[1].FullName != "Alan Turing" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func TestEmployeeHandler_Get(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/employees/2", "")
	c.SetParamNames("id")
	c.SetParamValues("2")
	withClaims(c, "root", domain.RoleAdmin)

	if err := NewEmployeeHandler(testEmployees()).Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp employeeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Person.LastName != "Turing" || resp.Salary != 5400 || resp.HireDate.Year() != 2021 {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}
