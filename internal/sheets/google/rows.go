package google

import (
	"time"

	"teamfee/internal/core"
)

// UnassignedLabel names the block of people whose team is gone.
const UnassignedLabel = "(no team)"

var header = []any{"Team", "Person", "Billable", "Fee %", "Fee source", "Contribution"}

// summaryRows lays a summary out as a values matrix: a few headline rows,
// a blank separator, then one row per team followed by its members.
// Amounts are rounded to cents here and nowhere earlier.
func summaryRows(s core.Summary, at time.Time) [][]any {
	rows := [][]any{
		{"Updated", at.UTC().Format(time.RFC3339)},
		{"Global fee %", s.GlobalFee},
		{"People", s.PeopleCount},
		{"Billable", core.RoundCents(s.Billable)},
		{"Total fee", core.RoundCents(s.Total)},
		{},
		header,
	}

	for _, team := range s.Teams {
		fee := any("")
		if team.Fee != nil {
			fee = *team.Fee
		}
		rows = append(rows, []any{team.Name, "", core.RoundCents(team.Billable), fee, "", core.RoundCents(team.Total)})
		rows = appendPeople(rows, team.People)
	}

	if len(s.Unassigned) > 0 {
		var billable, total float64
		for _, line := range s.Unassigned {
			billable += line.Billable
			total += line.Contribution
		}
		rows = append(rows, []any{UnassignedLabel, "", core.RoundCents(billable), "", "", core.RoundCents(total)})
		rows = appendPeople(rows, s.Unassigned)
	}
	return rows
}

func appendPeople(rows [][]any, people []core.PersonLine) [][]any {
	for _, p := range people {
		rows = append(rows, []any{"", p.Name, core.RoundCents(p.Billable), p.Fee, string(p.FeeSource), core.RoundCents(p.Contribution)})
	}
	return rows
}
