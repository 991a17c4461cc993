package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/bid"
	"github.com/appaltosmart/webclient/core/extraction"
	"github.com/appaltosmart/webclient/core/session"
	emailsvc "github.com/appaltosmart/webclient/services/email"
	logsvc "github.com/appaltosmart/webclient/services/logger"
	"github.com/appaltosmart/webclient/services/marketplace"
	"github.com/appaltosmart/webclient/storage/database"
	inmemdb "github.com/appaltosmart/webclient/storage/database/inmem"
	sqlxrepos "github.com/appaltosmart/webclient/storage/database/sqlx"
	"github.com/appaltosmart/webclient/web"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up the session store; Postgres when configured, in-memory otherwise
	var sessRepo session.Repository
	if conf.Database.Enabled {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		if err = database.EnsureSchema(db); err != nil {
			logger.Fatal(fmt.Sprintf("ensuring schema: %v", err), err)
		}
		sessRepo = sqlxrepos.NewSessionRepository(db)
	} else {
		sessRepo = inmemdb.NewSessionRepository()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	mkt := marketplace.NewClient(conf, logger)
	sessSvc := session.NewService(sessRepo, mkt, conf)
	bidSvc := bid.NewService(mkt)
	watcher := extraction.NewWatcher(mkt, conf.ExtractionPollInterval, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Web Service

	server := web.NewServer(
		web.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SessionSvc: sessSvc,
			Mkt:        mkt,
			BidSvc:     bidSvc,
			Watcher:    watcher,
			Email:      mailSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
