package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/trezcool/masomo-ledger/core/notification"
)

const dateLayout = "2006-01-02"

func (cli *commandLine) consecutiveAbsences(classID string, minDays int) error {
	runs, err := cli.svc.ConsecutiveAbsences(context.Background(), classID, minDays)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cli.out, "no absence runs found")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tFROM\tTO\tDAYS\tRUN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			run.StudentID, run.StartDate.Format(dateLayout), run.EndDate.Format(dateLayout), run.ConsecutiveDays, run.RunLength)
	}
	return w.Flush()
}

func (cli *commandLine) attendanceIssues(classID, sessionID string, threshold float64) error {
	issues, err := cli.svc.AttendanceIssues(context.Background(), classID, sessionID, threshold)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintln(cli.out, "no attendance issues found")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tDAYS\tPRESENT\tLATE\tPERCENT")
	for _, is := range issues {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\n", is.StudentID, is.TotalDays, is.PresentDays, is.LateDays, is.Percentage)
	}
	return w.Flush()
}

func (cli *commandLine) linkGuardian(g notification.Guardian) error {
	if err := cli.guardians.LinkGuardian(context.Background(), g); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "guardian %s linked to student %s\n", g.ID, g.StudentID)
	return nil
}
