package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/extraction"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/services/marketplace"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		SessionSvc *session.Service
		Mkt        *marketplace.Client
		BidSvc     *bid.Service
		Watcher    *extraction.Watcher
		Email      core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo

		pollers     *pollerRegistry
		extractions *extractionRegistry

		serverErrors   chan error
		shutdownSignal chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:           deps,
		app:            echo.New(),
		pollers:        newPollerRegistry(),
		extractions:    newExtractionRegistry(),
		serverErrors:   make(chan error, 1),
		shutdownSignal: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownSignal, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = s.newHTTPErrorHandler()
	s.app.Debug = conf.Debug

	parseWebTemplates(conf, s.deps.Logger)

	s.app.Static("/static", filepath.Join(conf.WorkDir, "assets", "static"))
	s.app.GET("/", s.home, s.sessionMiddleware())

	registerAuthRoutes(s)
	registerProfileRoutes(s)
	registerNotificationRoutes(s)
	registerAdminRoutes(s)
	registerContractorRoutes(s)
	registerOwnerRoutes(s)
}

// home routes the signed-in user to their role's dashboard, everyone else to login.
func (s *Server) home(ctx echo.Context) error {
	if sess, ok := contextSession(ctx); ok {
		return ctx.Redirect(http.StatusFound, sess.User.HomePath())
	}
	return ctx.Redirect(http.StatusFound, "/login")
}

func (s *Server) Start() {
	s.serverErrors <- s.app.Start(s.deps.Conf.Server.Host)
}

func (s *Server) Errors() <-chan error            { return s.serverErrors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdownSignal }

func (s *Server) Shutdown(ctx context.Context) error {
	s.pollers.stopAll()
	s.extractions.stopAll()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.pollers.stopAll()
	s.extractions.stopAll()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
