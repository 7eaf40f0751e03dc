package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type (
	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		TimetableSvc    *timetable.Service
		NotificationSvc *notification.Service
		Materializer    *notification.Materializer
		Settings        core.SettingsProvider
		Validate        *validator.Validate
		Translator      ut.Translator
		MetricsHandler  http.Handler // optional; mounted on /metrics
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.TimetableSvc, "TimetableSvc"),
		vala.IsNotNil(deps.NotificationSvc, "NotificationSvc"),
		vala.IsNotNil(deps.Materializer, "Materializer"),
		vala.IsNotNil(deps.Settings, "Settings"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).CheckAndPanic()

	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		jwt:        newJWTConfig(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.SignalShutdown)
	s.app.Debug = s.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	if s.MetricsHandler != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.MetricsHandler))
	}

	v1 := s.app.Group("/v1", middleware.JWTWithConfig(s.jwt), staffMiddleware())

	registerTimetableAPI(v1, s.TimetableSvc, s.Materializer, s.Validate)
	registerRuleAPI(v1, s.NotificationSvc, s.Validate)
	registerNotificationAPI(v1, s.NotificationSvc, s.Materializer)
	registerSettingsAPI(v1, s.Settings, s.Validate)
}

// Start blocks until the listener stops; any error other than a graceful shutdown is sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks main to stop the server gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signalled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the notification scheduler API!")
}
