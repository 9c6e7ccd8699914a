package attendance_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/tests"
)

func intPtr(i int) *int { return &i }

func TestSnapshot(t *testing.T) {
	date := testutil.Date(t, "2024-02-05")
	recs := []attendance.Record{
		testutil.Record(t, testutil.StudentA, "2024-02-05", "morning", attendance.StatusPresent),
		testutil.Record(t, testutil.StudentB, "2024-02-05", "morning", attendance.StatusAbsent),
		testutil.Record(t, testutil.StudentC, "2024-02-05", "morning", attendance.StatusLate),
		testutil.Record(t, testutil.StudentC, "2024-02-05", "afternoon", attendance.StatusOnLeave),
	}

	snap := attendance.Snapshot(testutil.ClassID, date, recs)
	assert.Equal(t, attendance.DailySnapshot{
		ClassID: testutil.ClassID,
		Date:    date,
		Present: 1,
		Absent:  1,
		Late:    1,
		OnLeave: 1,
		Total:   4,
	}, snap)

	empty := attendance.Snapshot(testutil.ClassID, date, nil)
	assert.Zero(t, empty.Total)
}

func TestMonthlyDigest(t *testing.T) {
	morning := testutil.Record(t, testutil.StudentA, "2024-02-05", "morning", attendance.StatusLate)
	morning.LateMinutes = intPtr(15)
	morning.Reason = "bus delay"
	afternoon := testutil.Record(t, testutil.StudentA, "2024-02-05", "afternoon", attendance.StatusLate)
	afternoon.LateMinutes = intPtr(5)
	afternoon.Reason = "bus delay"
	evening := testutil.Record(t, testutil.StudentA, "2024-02-05", "evening", attendance.StatusAbsent)
	evening.Reason = "sick"
	next := testutil.Record(t, testutil.StudentA, "2024-02-06", "morning", attendance.StatusPresent)

	digests := attendance.MonthlyDigest([]attendance.Record{next, evening, morning, afternoon})
	require.Len(t, digests, 2)

	assert.Equal(t, "2024-02-05", digests[0].Date.Format("2006-01-02"))
	assert.Equal(t, "afternoon:late, evening:absent, morning:late", digests[0].Sessions)
	assert.True(t, digests[0].HasLate)
	assert.Equal(t, 15, digests[0].MaxLateMinutes)
	assert.Equal(t, "bus delay; sick", digests[0].Reasons)

	assert.Equal(t, "morning:present", digests[1].Sessions)
	assert.False(t, digests[1].HasLate)
	assert.Zero(t, digests[1].MaxLateMinutes)
	assert.Empty(t, digests[1].Reasons)

	assert.Empty(t, attendance.MonthlyDigest(nil))
}

func TestRangeStats(t *testing.T) {
	start, end := testutil.Date(t, "2024-02-01"), testutil.Date(t, "2024-02-29")

	t.Run("day weighted averages", func(t *testing.T) {
		recs := []attendance.Record{
			// day 1: 1 of 1 present -> 100%
			testutil.Record(t, testutil.StudentA, "2024-02-05", "morning", attendance.StatusPresent),
			// day 2: 1 of 4 present, 1 of 4 late -> 25%, 25%
			testutil.Record(t, testutil.StudentA, "2024-02-06", "morning", attendance.StatusPresent),
			testutil.Record(t, testutil.StudentB, "2024-02-06", "morning", attendance.StatusLate),
			testutil.Record(t, testutil.StudentC, "2024-02-06", "morning", attendance.StatusAbsent),
			testutil.Record(t, testutil.StudentC, "2024-02-06", "afternoon", attendance.StatusHalfDay),
		}
		stats := attendance.RangeStats(testutil.ClassID, start, end, recs)

		assert.Equal(t, 2, stats.TotalDays)
		assert.Equal(t, 62.5, stats.AvgPresentPct) // not 2/5 = 40%
		assert.Equal(t, 12.5, stats.AvgLatePct)
		assert.Equal(t, 2, stats.TotalPresent)
		assert.Equal(t, 1, stats.TotalLate)
		assert.Equal(t, 1, stats.TotalAbsent)
		assert.Equal(t, 1, stats.TotalHalfDay)
		assert.Zero(t, stats.TotalOnLeave)
	})

	t.Run("no records", func(t *testing.T) {
		stats := attendance.RangeStats(testutil.ClassID, start, end, nil)
		assert.Zero(t, stats.TotalDays)
		assert.False(t, math.IsNaN(stats.AvgPresentPct))
		assert.False(t, math.IsInf(stats.AvgLatePct, 0))
		assert.Zero(t, stats.AvgPresentPct)
	})
}

func TestIssues(t *testing.T) {
	var recs []attendance.Record
	add := func(studentID string, statuses ...attendance.Status) {
		for i, s := range statuses {
			rec := testutil.Record(t, studentID, "2024-02-01", "morning", s)
			rec.Date = rec.Date.AddDate(0, 0, i)
			recs = append(recs, rec)
		}
	}
	add(testutil.StudentA, P, P, P, P, P)                        // 100%
	add(testutil.StudentB, P, A, L, P, P)                        // 60%
	add(testutil.StudentC, A, A, L, P, attendance.StatusOnLeave) // 20%

	tests := []struct {
		name      string
		threshold float64
		want      []string
	}{
		{"default threshold", 80, []string{testutil.StudentC, testutil.StudentB}},
		{"low threshold", 50, []string{testutil.StudentC}},
		{"strictly below", 60, []string{testutil.StudentC}},
		{"everyone", 100.01, []string{testutil.StudentC, testutil.StudentB, testutil.StudentA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := attendance.Issues(recs, tt.threshold)
			got := make([]string, 0, len(issues))
			for _, is := range issues {
				got = append(got, is.StudentID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	issues := attendance.Issues(recs, 80)
	require.Len(t, issues, 2)
	assert.Equal(t, attendance.StudentIssue{
		StudentID:   testutil.StudentC,
		TotalDays:   5,
		PresentDays: 1,
		LateDays:    1,
		Percentage:  20,
	}, issues[0])

	assert.Empty(t, attendance.Issues(nil, 80))

	t.Run("compares the reported percentage", func(t *testing.T) {
		twoThirds := sequence(t, testutil.StudentA, P, P, A) // 66.666...%

		assert.Empty(t, attendance.Issues(twoThirds, 66.67))

		issues := attendance.Issues(twoThirds, 66.68)
		require.Len(t, issues, 1)
		assert.Equal(t, 66.67, issues[0].Percentage)
	})
}

func TestSummarize(t *testing.T) {
	recs := sequence(t, testutil.StudentA, P, P, A, L)
	sum := attendance.Summarize(testutil.StudentA, testutil.SessionID, recs)
	assert.Equal(t, 2, sum.Present)
	assert.Equal(t, 1, sum.Absent)
	assert.Equal(t, 1, sum.Late)
	assert.Equal(t, 4, sum.Total)
	require.NotNil(t, sum.Percentage)
	assert.Equal(t, 50.0, *sum.Percentage)

	empty := attendance.Summarize(testutil.StudentA, testutil.SessionID, nil)
	assert.Nil(t, empty.Percentage)
}
