// Package httpapi exposes the workflow and device operations over HTTP using
// echo. The API is a thin binding: validation and semantics live in the
// orchestrator and the device registry.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	caremesh "github.com/caremesh/caremesh"
	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/device"
	"github.com/caremesh/caremesh/logging"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	mesh   *caremesh.CareMesh
	logger logging.Logger
}

// NewServer creates a Server over an assembled CareMesh.
func NewServer(mesh *caremesh.CareMesh, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Server{mesh: mesh, logger: logger}
}

// Echo builds the echo engine with all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/workflows", s.StartWorkflow)
	e.GET("/workflows/:id", s.WorkflowStatus)
	e.POST("/workflows/:id/override", s.EmergencyOverride)
	e.POST("/workflows/:id/complete", s.CompleteWorkflow)
	e.GET("/health/agents", s.AgentHealth)

	e.POST("/devices", s.RegisterDevice)
	e.POST("/devices/:id/vitals", s.UpdateVitals)
	e.POST("/devices/:id/scan", s.ScanDevice)
	e.POST("/devices/:id/reports", s.StoreReport)
	e.GET("/devices/:id/alerts", s.DeviceAlerts)

	return e
}

type startWorkflowRequest struct {
	WorkflowType string         `json:"workflow_type"`
	InitialData  map[string]any `json:"initial_data"`
}

// StartWorkflow launches a workflow.
// (POST /workflows)
func (s *Server) StartWorkflow(c echo.Context) error {
	var req startWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	id, err := s.mesh.StartWorkflow(c.Request().Context(), core.WorkflowType(req.WorkflowType), req.InitialData)
	if err != nil {
		if errors.Is(err, core.ErrUnknownWorkflowType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{"session_id": id})
}

// WorkflowStatus returns the session snapshot.
// (GET /workflows/:id)
func (s *Server) WorkflowStatus(c echo.Context) error {
	status, err := s.mesh.WorkflowStatus(c.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, status)
}

// EmergencyOverride escalates a live session.
// (POST /workflows/:id/override)
func (s *Server) EmergencyOverride(c echo.Context) error {
	var override map[string]any
	if err := c.Bind(&override); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	if err := s.mesh.EmergencyOverride(c.Request().Context(), c.Param("id"), override); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "override_applied"})
}

// CompleteWorkflow finalizes a session. Idempotent.
// (POST /workflows/:id/complete)
func (s *Server) CompleteWorkflow(c echo.Context) error {
	if err := s.mesh.CompleteWorkflow(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "completed"})
}

// AgentHealth reports per-agent health.
// (GET /health/agents)
func (s *Server) AgentHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, s.mesh.AgentHealth(c.Request().Context()))
}

// RegisterDevice adds a device to the registry.
// (POST /devices)
func (s *Server) RegisterDevice(c echo.Context) error {
	var d device.Device
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	if err := s.mesh.RegisterDevice(d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]string{"device_id": d.DeviceID})
}

// UpdateVitals streams readings into a device.
// (POST /devices/:id/vitals)
func (s *Server) UpdateVitals(c echo.Context) error {
	var vitals map[string]any
	if err := c.Bind(&vitals); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	eval, err := s.mesh.UpdateVitals(c.Request().Context(), c.Param("id"), vitals)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, eval)
}

type scanRequest struct {
	DoctorID string `json:"doctor_id"`
	ScanType string `json:"scan_type"`
}

// ScanDevice reads a scoped device view.
// (POST /devices/:id/scan)
func (s *Server) ScanDevice(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	result, err := s.mesh.ScanDevice(c.Request().Context(), device.ScanRequest{
		DoctorID: req.DoctorID,
		DeviceID: c.Param("id"),
		Type:     device.ScanType(req.ScanType),
	})
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, device.ErrAccessDenied):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, result)
}

// StoreReport appends a medical report to a device.
// (POST /devices/:id/reports)
func (s *Server) StoreReport(c echo.Context) error {
	var report device.Report
	if err := c.Bind(&report); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	id, err := s.mesh.Devices().StoreReport(c.Param("id"), report)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]string{"report_id": id})
}

// DeviceAlerts lists the alert history for a device.
// (GET /devices/:id/alerts)
func (s *Server) DeviceAlerts(c echo.Context) error {
	alerts := s.mesh.Devices().AlertsForDevice(c.Param("id"))
	if alerts == nil {
		alerts = []device.Alert{}
	}
	return c.JSON(http.StatusOK, alerts)
}

// Start runs the server until the listener fails.
func (s *Server) Start(addr string) error {
	e := s.Echo()
	e.Server.ReadHeaderTimeout = 10 * time.Second
	s.logger.Info("http api listening addr=%s", addr)
	return e.Start(addr)
}
