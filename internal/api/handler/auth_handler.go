package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devicemanager/api/internal/core/ports"
)

// AuthHandler serves registration, login and the caller's own account.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a User-role account for an existing employee.
//
// @Summary      Register an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  registeredResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/accounts [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:   req.Username,
		Password:   req.Password,
		EmployeeID: req.EmployeeID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registeredResponse{
		ID:         account.ID,
		Username:   account.Username,
		EmployeeID: account.EmployeeID,
	})
}

// Login exchanges credentials for a bearer token.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /api/auth [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	token, err := h.authService.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}

// Me returns the caller's account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/accounts/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.Me(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{
		Username:   profile.Username,
		EmployeeID: profile.EmployeeID,
		RoleName:   profile.RoleName,
	})
}

// UpdateMe changes the caller's username and password.
//
// @Summary      Update current account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      selfUpdateRequest  true  "New credentials"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/accounts/me [put]
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req selfUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.authService.UpdateMe(c.Request().Context(), claims, ports.SelfUpdateInput{
		Username: req.Username,
		Password: req.Password,
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Account updated."})
}
