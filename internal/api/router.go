package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/devicemanager/api/internal/api/handler"
	"github.com/devicemanager/api/internal/api/middleware"
	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/core/ports"
	"github.com/devicemanager/api/internal/infrastructure/http/handlers"
)

// Dependencies are the wired services the router exposes.
type Dependencies struct {
	Auth      ports.AuthService
	Accounts  ports.AccountService
	Devices   ports.DeviceService
	Employees ports.EmployeeService
	Tokens    middleware.TokenValidator
	Readiness *handlers.HealthDependenciesHandler
	Log       zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// prometheus default registry, where the domain metrics also live.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(requestLogger(deps.Log)))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "devicemanager",
		Registerer: registerer,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth)
	accountHandler := handler.NewAccountHandler(deps.Accounts)
	deviceHandler := handler.NewDeviceHandler(deps.Devices)
	employeeHandler := handler.NewEmployeeHandler(deps.Employees)

	authn := middleware.Auth(deps.Tokens, deps.Log)
	admin := middleware.RBAC(auth.AdminOnly)
	anyAccount := middleware.RBAC(auth.AnyAccount)
	userOnly := middleware.RBAC(auth.UserOnly)

	api := e.Group("/api")

	// --- Public ---
	api.POST("/accounts", authHandler.Register)
	api.POST("/auth", authHandler.Login)

	// --- Self-service ---
	api.GET("/accounts/me", authHandler.Me, authn, anyAccount)
	api.PUT("/accounts/me", authHandler.UpdateMe, authn, userOnly)
	api.GET("/devices/me", deviceHandler.Mine, authn, anyAccount)
	api.PUT("/devices/me/:id", deviceHandler.UpdateMine, authn, anyAccount)

	// --- Administration ---
	accounts := api.Group("/accounts", authn, admin)
	accounts.GET("", accountHandler.List)
	accounts.POST("/admin", accountHandler.Create)
	accounts.GET("/:id", accountHandler.Get)
	accounts.PUT("/:id", accountHandler.Update)
	accounts.DELETE("/:id", accountHandler.Delete)

	devices := api.Group("/devices", authn, admin)
	devices.GET("", deviceHandler.List)
	devices.POST("", deviceHandler.Create)
	devices.GET("/:id", deviceHandler.Get)
	devices.PUT("/:id", deviceHandler.Update)
	devices.DELETE("/:id", deviceHandler.Delete)

	employees := api.Group("/employees", authn, admin)
	employees.GET("", employeeHandler.List)
	employees.GET("/:id", employeeHandler.Get)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness) // liveness  – is the process alive?
	if deps.Readiness != nil {
		e.GET("/health/ready", deps.Readiness.Readiness) // readiness – are dependencies up?
	}

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}
}
