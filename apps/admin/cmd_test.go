package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
	"github.com/trezcool/masomo-ledger/storage/database"
	sqlxrepos "github.com/trezcool/masomo-ledger/storage/database/sqlx"
	"github.com/trezcool/masomo-ledger/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	engine := database.EngineSQLite
	validate, translator := testutil.NewValidator()
	guardians := sqlxrepos.NewGuardianRepository(db, engine)

	var out bytes.Buffer
	return &commandLine{
		db:     db,
		engine: engine,
		svc: attendance.NewService(attendance.ServiceDeps{
			Conf:       testutil.NewConfig(),
			Logger:     testutil.NewLogger(),
			Tx:         core.NewTransactor(db, database.ReadTxOptions(engine)),
			Repo:       sqlxrepos.NewAttendanceRepository(db, engine),
			Guardians:  guardians,
			Intents:    sqlxrepos.NewNotificationRepository(db, engine),
			Validate:   validate,
			Translator: translator,
		}),
		guardians: guardians,
		out:       &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
			}
			for _, s := range tt.wantOut {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	orig := gooseRunFunc
	defer func() { gooseRunFunc = orig }()
	gooseRunFunc = func(db *sql.DB, engine, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	})
}

func Test_commandLine_migrate_sqlite(t *testing.T) {
	cli, _ := setup(t)

	// migrations are already applied
	require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
	require.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
}

func Test_commandLine_reports(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	var batch []attendance.NewAttendance
	for i, s := range []attendance.Status{
		attendance.StatusAbsent, attendance.StatusAbsent, attendance.StatusAbsent, attendance.StatusPresent,
	} {
		batch = append(batch, testutil.NewAttendance(testutil.StudentA, fmt.Sprintf("2024-01-%02d", i+1), "morning", s))
	}
	batch = append(batch, testutil.NewAttendance(testutil.StudentB, "2024-01-01", "morning", attendance.StatusPresent))
	_, err := cli.svc.MarkBulk(ctx, batch)
	require.NoError(t, err)

	runCLITests(t, cli, out, []cliTest{
		{name: "absences: no class", args: []string{"absences"}, wantErr: errHelp},
		{name: "absences: bad flag", args: []string{"absences", "-lol"}, wantErr: errHelp},
		{name: "absences: non positive min", args: []string{"absences", "-class", testutil.ClassID, "-min", "0"}, wantErrStr: "minDays must be greater than 0"},
		{
			name:    "absences",
			args:    []string{"absences", "-class", testutil.ClassID},
			wantOut: []string{"STUDENT", testutil.StudentA, "2024-01-01", "2024-01-03"},
		},
		{
			name:    "absences: none",
			args:    []string{"absences", "-class", testutil.ClassID, "-min", "4"},
			wantOut: []string{"no absence runs found"},
		},
		{name: "issues: no session", args: []string{"issues", "-class", testutil.ClassID}, wantErr: errHelp},
		{
			name:    "issues",
			args:    []string{"issues", "-class", testutil.ClassID, "-session", testutil.SessionID},
			wantOut: []string{testutil.StudentA, "25.00"},
		},
		{
			name:    "issues: none",
			args:    []string{"issues", "-class", testutil.ClassID, "-session", testutil.SessionID, "-threshold", "20"},
			wantOut: []string{"no attendance issues found"},
		},
		{name: "issues: threshold above 100", args: []string{"issues", "-class", testutil.ClassID, "-session", testutil.SessionID, "-threshold", "101"}, wantErrStr: "threshold cannot exceed 100"},
	})
}

func Test_commandLine_guardian(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"guardian"}, wantErr: errHelp},
		{name: "no name", args: []string{"guardian", "-student", testutil.StudentA, "-id", testutil.GuardianID}, wantErr: errHelp},
		{
			name:    "link",
			args:    []string{"guardian", "-student", testutil.StudentA, "-id", testutil.GuardianID, "-name", "Mama", "-email", "mama@example.com"},
			wantOut: []string{"guardian " + testutil.GuardianID + " linked"},
		},
	})

	guardians, err := cli.guardians.QueryGuardians(context.Background(), testutil.StudentA)
	require.NoError(t, err)
	assert.Equal(t, []notification.Guardian{
		{ID: testutil.GuardianID, StudentID: testutil.StudentA, Name: "Mama", Email: "mama@example.com"},
	}, guardians)
}
