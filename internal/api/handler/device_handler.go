package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/devicemanager/api/internal/core/ports"
)

// DeviceHandler handles HTTP requests for device operations.
type DeviceHandler struct {
	service ports.DeviceService
}

func NewDeviceHandler(service ports.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// List handles GET /api/devices.
//
// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   deviceSummary
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/devices [get]
func (h *DeviceHandler) List(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	devices, err := h.service.List(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	out := make([]deviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceSummary{ID: d.ID, Name: d.Name})
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/devices/:id. The property blob includes the current
// custodian, if any.
//
// @Summary      Get a device
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Device id"
// @Success      200  {object}  deviceDetail
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/devices/{id} [get]
func (h *DeviceHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	device, err := h.service.Get(c.Request().Context(), claims, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deviceDetail{
		DeviceTypeName:       device.DeviceTypeName,
		IsEnabled:            device.IsEnabled,
		AdditionalProperties: propertiesJSON(device.Properties),
	})
}

// Create handles POST /api/devices.
//
// @Summary      Create a device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deviceRequest  true  "Device"
// @Success      201   {object}  deviceResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/devices [post]
func (h *DeviceHandler) Create(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	device, err := h.service.Create(c.Request().Context(), claims, req.input())
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/devices/"+strconv.FormatInt(device.ID, 10))
	return c.JSON(http.StatusCreated, toDeviceResponse(device))
}

// Update handles PUT /api/devices/:id.
//
// @Summary      Replace a device
// @Tags         devices
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  int            true  "Device id"
// @Param        body  body  deviceRequest  true  "Device"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/devices/{id} [put]
func (h *DeviceHandler) Update(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.service.Update(c.Request().Context(), claims, id, req.input()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /api/devices/:id.
//
// @Summary      Delete a device
// @Tags         devices
// @Security     BearerAuth
// @Param        id   path  int  true  "Device id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/devices/{id} [delete]
func (h *DeviceHandler) Delete(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), claims, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /api/devices/me: every device ever assigned to the
// caller's employee.
//
// @Summary      My devices
// @Tags         devices
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   deviceResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/devices/me [get]
func (h *DeviceHandler) Mine(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	devices, err := h.service.MyDevices(c.Request().Context(), claims)
	if err != nil {
		return err
	}

	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateMine handles PUT /api/devices/me/:id.
//
// @Summary      Update one of my devices
// @Tags         devices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Device id"
// @Param        body  body      deviceRequest  true  "Device"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/devices/me/{id} [put]
func (h *DeviceHandler) UpdateMine(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.service.UpdateMyDevice(c.Request().Context(), claims, id, req.input()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Device updated."})
}
