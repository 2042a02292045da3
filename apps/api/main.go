package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/wordwise/backend/apps/api/echo"
	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
	emailsvc "github.com/wordwise/backend/services/email"
	eventsvc "github.com/wordwise/backend/services/events"
	logsvc "github.com/wordwise/backend/services/logger"
	schedulersvc "github.com/wordwise/backend/services/scheduler"
	rediscache "github.com/wordwise/backend/storage/cache/redis"
	"github.com/wordwise/backend/storage/database"
	inmemdb "github.com/wordwise/backend/storage/database/inmem"
	sqlxrepos "github.com/wordwise/backend/storage/database/sqlx"
)

// TODO:
// - APM/Tracing
// - CSRF
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accRepo, prgRepo, closeDB, err := setUpRepositories(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err := closeDB(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	mailSvc := newEmailService(conf, logger)
	prgOpts := []progress.Option{progress.WithEmail(mailSvc)}

	if !conf.Redis.Disabled {
		client, err := rediscache.Open(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()
		prgOpts = append(prgOpts, progress.WithCache(rediscache.NewProgressCache(client, conf.Redis.TTL)))
	}

	var events core.EventPublisher = eventsvc.NewLogPublisher(logger)
	if !conf.RabbitMQ.Disabled {
		pub, err := eventsvc.NewRabbitMQPublisher(conf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up rabbitmq: %v", err), err)
		}
		defer pub.Close()
		events = pub
	}
	prgOpts = append(prgOpts, progress.WithEvents(events))

	accSvc := account.NewService(accRepo)
	followMgr := account.NewFollowManager(accRepo, mailSvc, events, logger)
	prgSvc := progress.NewService(prgRepo, accRepo, logger, prgOpts...)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(); err != nil {
		logger.Fatal("parsing email templates", err)
	}

	if conf.Scheduler.LevelSweepEnabled {
		sched := schedulersvc.New(prgSvc, logger)
		if err = sched.Start(conf.Scheduler.LevelSweepInterval); err != nil {
			logger.Fatal("starting scheduler", err)
		}
		defer sched.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Conf:   conf,
			Logger: logger,
			SignalShutdown: func() {
				shutdown <- syscall.SIGTERM
			},
			AccountSvc:  accSvc,
			FollowMgr:   followMgr,
			ProgressSvc: prgSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		stopCtx, stop := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer stop()

		if err = server.Stop(stopCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

// setUpRepositories returns the account and progress repositories, backed by Postgres unless
// Database.InMemory is set. The returned func closes the underlying connection.
func setUpRepositories(ctx context.Context, conf *core.Config) (account.Repository, progress.Repository, func() error, error) {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		return inmemdb.NewAccountRepository(db), inmemdb.NewProgressRepository(db), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, nil, err
	}
	if err := migrate(ctx, conf); err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, nil, err
	}
	return sqlxrepos.NewAccountRepository(db), sqlxrepos.NewProgressRepository(db), db.Close, nil
}

// migrate applies pending migrations on a dedicated connection, closed by the migrator.
func migrate(ctx context.Context, conf *core.Config) error {
	db, err := database.Open(ctx, conf)
	if err != nil {
		return err
	}
	migrator, err := database.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Email.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, os.Stdout, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}
