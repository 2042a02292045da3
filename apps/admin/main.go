package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
	logsvc "github.com/wordwise/backend/services/logger"
	"github.com/wordwise/backend/storage/database"
	inmemdb "github.com/wordwise/backend/storage/database/inmem"
	sqlxrepos "github.com/wordwise/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	ctx := context.Background()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	cli := commandLine{out: os.Stdout, validate: validate}

	if conf.Database.InMemory {
		db := inmemdb.Open()
		accRepo := inmemdb.NewAccountRepository(db)
		cli.accSvc = account.NewService(accRepo)
		cli.prgSvc = progress.NewService(inmemdb.NewProgressRepository(db), accRepo, logger)
		cli.newMigrator = func() (migrator, error) {
			return nil, errors.New("migrations need a Postgres database")
		}
	} else {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer db.Close()

		accRepo := sqlxrepos.NewAccountRepository(db)
		cli.accSvc = account.NewService(accRepo)
		cli.prgSvc = progress.NewService(sqlxrepos.NewProgressRepository(db), accRepo, logger)
		// the migrator owns (and closes) its own connection
		cli.newMigrator = func() (migrator, error) {
			mdb, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			m, err := database.NewMigrator(mdb)
			if err != nil {
				_ = mdb.Close()
				return nil, err
			}
			return m, nil
		}
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
