package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sql.DB
	engine    string
	svc       attendance.Service
	guardians notification.GuardianRepository
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version...)")
	fmt.Fprintln(cli.out, "  absences -class ID [-min N] - list runs of at least N consecutive absences")
	fmt.Fprintln(cli.out, "  issues -class ID -session ID [-threshold P] - list students attending less than P percent")
	fmt.Fprintln(cli.out, "  guardian -student ID -id ID -name NAME [-email EMAIL] - link a guardian to a student")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2], args[3:]...)

	case "absences":
		cmd := cli.newFlagSet("absences")
		classID := cmd.String("class", "", "The class ID.")
		minDays := cmd.Int("min", 3, "The minimum number of consecutive absences.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *classID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.consecutiveAbsences(*classID, *minDays)

	case "issues":
		cmd := cli.newFlagSet("issues")
		classID := cmd.String("class", "", "The class ID.")
		sessionID := cmd.String("session", "", "The academic session ID.")
		threshold := cmd.Float64("threshold", 0, "The attendance percentage below which a student is reported (default from config).")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *classID == "" || *sessionID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.attendanceIssues(*classID, *sessionID, *threshold)

	case "guardian":
		cmd := cli.newFlagSet("guardian")
		studentID := cmd.String("student", "", "The student ID.")
		guardianID := cmd.String("id", "", "The guardian ID.")
		name := cmd.String("name", "", "The guardian's name.")
		email := cmd.String("email", "", "The guardian's email.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *studentID == "" || *guardianID == "" || *name == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.linkGuardian(notification.Guardian{ID: *guardianID, StudentID: *studentID, Name: *name, Email: *email})

	default:
		cli.printUsage()
		return errHelp
	}
}
