package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devicemanager/api/internal/core/ports"
)

type EmployeeHandler struct {
	service ports.EmployeeService
}

func NewEmployeeHandler(service ports.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{service: service}
}

// List handles GET /api/employees.
//
// @Summary      List employees
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   employeeSummary
// @Failure      403  {object}  errorResponse
// @Router       /api/employees [get]
func (h *EmployeeHandler) List(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	employees, err := h.service.List(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	out := make([]employeeSummary, 0, len(employees))
	for _, e := range employees {
		out = append(out, employeeSummary{ID: e.ID, FullName: e.FullName()})
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/employees/:id.
//
// @Summary      Get an employee
// @Tags         employees
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Employee id"
// @Success      200  {object}  employeeResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/employees/{id} [get]
func (h *EmployeeHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	e, err := h.service.Get(c.Request().Context(), claims, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, employeeResponse{
		ID:       e.ID,
		Person:   e.Person,
		Salary:   e.Salary,
		Position: e.Position,
		HireDate: e.HireDate,
	})
}
