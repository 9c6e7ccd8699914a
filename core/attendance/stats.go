package attendance

import (
	"math"
	"sort"
	"strings"
	"time"
)

const DefaultIssueThreshold = 80.0

type statusCounts struct {
	present, absent, late, halfDay, onLeave, total int
}

func (c *statusCounts) add(s Status) {
	switch s {
	case StatusPresent:
		c.present++
	case StatusAbsent:
		c.absent++
	case StatusLate:
		c.late++
	case StatusHalfDay:
		c.halfDay++
	case StatusOnLeave:
		c.onLeave++
	}
	c.total++
}

// percent returns n/total*100 and false when total is zero.
func percent(n, total int) (float64, bool) {
	if total == 0 {
		return 0, false
	}
	return float64(n) / float64(total) * 100, true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Snapshot counts the statuses of a class on one date.
func Snapshot(classID string, date time.Time, records []Record) DailySnapshot {
	var c statusCounts
	for _, rec := range records {
		c.add(rec.Status)
	}
	return DailySnapshot{
		ClassID: classID,
		Date:    date,
		Present: c.present,
		Absent:  c.absent,
		Late:    c.late,
		HalfDay: c.halfDay,
		OnLeave: c.onLeave,
		Total:   c.total,
	}
}

// MonthlyDigest folds a student's records into one row per date.
func MonthlyDigest(records []Record) []DayDigest {
	recs := append([]Record(nil), records...)
	sortRecords(recs)

	digests := make([]DayDigest, 0)
	for i := 0; i < len(recs); {
		j := i
		for j < len(recs) && recs[j].Date.Equal(recs[i].Date) {
			j++
		}
		digests = append(digests, digestDay(recs[i:j]))
		i = j
	}
	return digests
}

func digestDay(day []Record) DayDigest {
	dd := DayDigest{Date: day[0].Date}
	sessions := make([]string, 0, len(day))
	reasons := make([]string, 0)
	seen := make(map[string]bool)

	for _, rec := range day {
		sessions = append(sessions, rec.SessionType+":"+string(rec.Status))
		if rec.Status == StatusLate {
			dd.HasLate = true
		}
		if rec.LateMinutes != nil && *rec.LateMinutes > dd.MaxLateMinutes {
			dd.MaxLateMinutes = *rec.LateMinutes
		}
		if r := strings.TrimSpace(rec.Reason); r != "" && !seen[r] {
			seen[r] = true
			reasons = append(reasons, r)
		}
	}
	dd.Sessions = strings.Join(sessions, ", ")
	dd.Reasons = strings.Join(reasons, "; ")
	return dd
}

// RangeStats computes day-weighted percentages: every day with records
// weighs the same regardless of how many records it holds.
func RangeStats(classID string, start, end time.Time, records []Record) ClassStats {
	stats := ClassStats{ClassID: classID, Start: start, End: end}

	days := make(map[string]*statusCounts)
	for _, rec := range records {
		day := rec.Date.Format(dateLayout)
		c, ok := days[day]
		if !ok {
			c = &statusCounts{}
			days[day] = c
		}
		c.add(rec.Status)

		switch rec.Status {
		case StatusPresent:
			stats.TotalPresent++
		case StatusAbsent:
			stats.TotalAbsent++
		case StatusLate:
			stats.TotalLate++
		case StatusHalfDay:
			stats.TotalHalfDay++
		case StatusOnLeave:
			stats.TotalOnLeave++
		}
	}

	var presentSum, lateSum float64
	for _, c := range days {
		presentPct, ok := percent(c.present, c.total)
		if !ok {
			continue
		}
		latePct, _ := percent(c.late, c.total)
		presentSum += presentPct
		lateSum += latePct
		stats.TotalDays++
	}
	if stats.TotalDays > 0 {
		stats.AvgPresentPct = round2(presentSum / float64(stats.TotalDays))
		stats.AvgLatePct = round2(lateSum / float64(stats.TotalDays))
	}
	return stats
}

// Issues returns the students whose present percentage, rounded as
// reported, is below threshold, worst first.
func Issues(records []Record, threshold float64) []StudentIssue {
	byStudent := make(map[string]*statusCounts)
	for _, rec := range records {
		c, ok := byStudent[rec.StudentID]
		if !ok {
			c = &statusCounts{}
			byStudent[rec.StudentID] = c
		}
		c.add(rec.Status)
	}

	issues := make([]StudentIssue, 0)
	for studentID, c := range byStudent {
		pct, ok := percent(c.present, c.total)
		if !ok {
			continue
		}
		if pct = round2(pct); pct >= threshold {
			continue
		}
		issues = append(issues, StudentIssue{
			StudentID:   studentID,
			TotalDays:   c.total,
			PresentDays: c.present,
			LateDays:    c.late,
			Percentage:  pct,
		})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Percentage != issues[j].Percentage {
			return issues[i].Percentage < issues[j].Percentage
		}
		return issues[i].StudentID < issues[j].StudentID
	})
	return issues
}

// Summarize recomputes the summary of a student in an academic session.
func Summarize(studentID, academicSessionID string, records []Record) Summary {
	var c statusCounts
	for _, rec := range records {
		c.add(rec.Status)
	}
	sum := Summary{
		StudentID:         studentID,
		AcademicSessionID: academicSessionID,
		Present:           c.present,
		Absent:            c.absent,
		Late:              c.late,
		HalfDay:           c.halfDay,
		OnLeave:           c.onLeave,
		Total:             c.total,
	}
	if pct, ok := percent(c.present, c.total); ok {
		pct = round2(pct)
		sum.Percentage = &pct
	}
	return sum
}
