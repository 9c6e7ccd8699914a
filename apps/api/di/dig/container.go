package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-ledger/apps/api/echo"
	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
	logsvc "github.com/trezcool/masomo-ledger/services/logger"
	"github.com/trezcool/masomo-ledger/storage/database"
	sqlxrepos "github.com/trezcool/masomo-ledger/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serviceParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Tx         core.Transactor
	Repo       attendance.Repository
	Guardians  notification.GuardianRepository
	Intents    notification.Repository
	Validate   *validator.Validate
	Translator ut.Translator
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	AttendanceSvc attendance.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, conf.Database.Engine); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTransactor(db *sql.DB, conf *core.Config) core.Transactor {
	return core.NewTransactor(db, database.ReadTxOptions(conf.Database.Engine))
}

func newAttendanceRepository(db *sql.DB, conf *core.Config) attendance.Repository {
	return sqlxrepos.NewAttendanceRepository(db, conf.Database.Engine)
}

func newGuardianRepository(db *sql.DB, conf *core.Config) notification.GuardianRepository {
	return sqlxrepos.NewGuardianRepository(db, conf.Database.Engine)
}

func newNotificationRepository(db *sql.DB, conf *core.Config) notification.Repository {
	return sqlxrepos.NewNotificationRepository(db, conf.Database.Engine)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

func newAttendanceService(p serviceParams) attendance.Service {
	return attendance.NewService(attendance.ServiceDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Tx:         p.Tx,
		Repo:       p.Repo,
		Guardians:  p.Guardians,
		Intents:    p.Intents,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		AttendanceSvc: p.AttendanceSvc,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newTransactor))
	must(c.Provide(newAttendanceRepository))
	must(c.Provide(newGuardianRepository))
	must(c.Provide(newNotificationRepository))
	must(c.Provide(newValidator))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
