package attendance

import (
	"sort"

	"github.com/kat-co/vala"

	"github.com/trezcool/masomo-ledger/core"
)

// DetectRuns reports, for every student, each block of consecutive absent
// records with at least minLen records.
//
// Adjacency is positional: records are ordered by (date, session_type) and a
// non-absent record breaks a run, but calendar days without any record do not.
// A student absent only on Mondays with no records on other days therefore
// registers one long run.
func DetectRuns(records []Record, minLen int) ([]Run, error) {
	if err := vala.BeginValidation().Validate(
		vala.GreaterThan(minLen, 0, "minLen"),
	).Check(); err != nil {
		return nil, core.NewArgumentError(err.Error())
	}

	byStudent := make(map[string][]Record)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	runs := make([]Run, 0)
	for studentID, recs := range byStudent {
		sortRecords(recs)

		start := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			if length := end - start; length >= minLen {
				runs = append(runs, Run{
					StudentID:       studentID,
					StartDate:       recs[start].Date,
					EndDate:         recs[start+minLen-1].Date,
					ConsecutiveDays: minLen,
					RunLength:       length,
				})
			}
			start = -1
		}

		for i, rec := range recs {
			if rec.Status == StatusAbsent {
				if start < 0 {
					start = i
				}
				continue
			}
			flush(i)
		}
		flush(len(recs))
	}

	// most recent first
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].StartDate.Equal(runs[j].StartDate) {
			return runs[i].StartDate.After(runs[j].StartDate)
		}
		return runs[i].StudentID < runs[j].StudentID
	})
	return runs, nil
}

// sortRecords orders records by date, session type and student.
func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.SessionType != b.SessionType {
			return a.SessionType < b.SessionType
		}
		return a.StudentID < b.StudentID
	})
}
