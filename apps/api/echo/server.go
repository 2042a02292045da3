package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		SignalShutdown func()
		DisableReqLogs bool

		AccountSvc  *account.Service
		FollowMgr   *account.FollowManager
		ProgressSvc *progress.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		auth *jwtAuth
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
		auth: newJWTAuth(opts.Conf),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(conf.Server.AllowedOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	jwt := middleware.JWTWithConfig(s.auth.config)
	api := s.app.Group("/api")

	registerAccountAPI(api, jwt, s.auth, s.opts.AccountSvc, s.opts.Validate)
	registerFollowAPI(api, jwt, s.auth, s.opts.AccountSvc, s.opts.FollowMgr, s.opts.Validate)
	registerProgressAPI(api, jwt, s.auth, s.opts.AccountSvc, s.opts.ProgressSvc, conf.Progress)
	registerPlacementAPI(s.app, jwt, s.auth, s.opts.AccountSvc, s.opts.ProgressSvc, s.opts.Validate)
}

func (s *server) Start() error {
	s.app.Server.ReadTimeout = s.opts.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.opts.Conf.Server.WriteTimeout
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to WordWise API!")
}
