package main

import (
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	logsvc "github.com/trezcool/masomo-ledger/services/logger"
	"github.com/trezcool/masomo-ledger/storage/database"
	sqlxrepos "github.com/trezcool/masomo-ledger/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// set up services
	engine := conf.Database.Engine
	validate, translator := newValidator()
	guardians := sqlxrepos.NewGuardianRepository(db, engine)
	svc := attendance.NewService(attendance.ServiceDeps{
		Conf:       conf,
		Logger:     logger,
		Tx:         core.NewTransactor(db, database.ReadTxOptions(engine)),
		Repo:       sqlxrepos.NewAttendanceRepository(db, engine),
		Guardians:  guardians,
		Intents:    sqlxrepos.NewNotificationRepository(db, engine),
		Validate:   validate,
		Translator: translator,
	})

	// start CLI
	cli := commandLine{
		db:        db,
		engine:    engine,
		svc:       svc,
		guardians: guardians,
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}
