package main

import (
	"fmt"
	"log"
	"os"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/session"
	logsvc "github.com/appaltosmart/webclient/services/logger"
	"github.com/appaltosmart/webclient/services/marketplace"
	"github.com/appaltosmart/webclient/storage/database"
	inmemdb "github.com/appaltosmart/webclient/storage/database/inmem"
	sqlxrepos "github.com/appaltosmart/webclient/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEBCTL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	var sessRepo session.Repository
	if conf.Database.Enabled {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = db.Close() }()
		if err = database.EnsureSchema(db); err != nil {
			logger.Fatal(fmt.Sprintf("ensuring schema: %v", err), err)
		}
		sessRepo = sqlxrepos.NewSessionRepository(db)
	} else {
		sessRepo = inmemdb.NewSessionRepository()
	}

	mkt := marketplace.NewClient(conf, logger)
	cli := &commandLine{sessSvc: session.NewService(sessRepo, mkt, conf)}

	if err := cli.run(os.Args); err != nil {
		if err == errHelp {
			os.Exit(2)
		}
		logger.Fatal(err.Error(), err)
	}
}
