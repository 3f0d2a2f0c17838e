package http

import (
	"strings"

	"teamfee/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type personLineView struct {
	PersonID     string  `json:"personId"`
	Name         string  `json:"name"`
	Billable     float64 `json:"billable"`
	Fee          float64 `json:"fee"`
	FeeSource    string  `json:"feeSource"`
	Contribution float64 `json:"contribution"`
}

type teamSummaryView struct {
	TeamID   string           `json:"teamId"`
	Name     string           `json:"name"`
	Fee      *float64         `json:"fee,omitempty"`
	Billable float64          `json:"billable"`
	TotalFee float64          `json:"totalFee"`
	People   []personLineView `json:"people"`
}

// summaryView is the display form of core.Summary. Money is rounded to cents
// here and nowhere earlier.
type summaryView struct {
	Revision     uint64            `json:"revision"`
	GlobalFee    float64           `json:"globalFee"`
	PeopleCount  int               `json:"peopleCount"`
	Billable     float64           `json:"billable"`
	TotalFee     float64           `json:"totalFee"`
	TotalFeeText string            `json:"totalFeeText"`
	Teams        []teamSummaryView `json:"teams"`
	Unassigned   []personLineView  `json:"unassigned,omitempty"`
}

func newSummaryView(s core.Summary, revision uint64) summaryView {
	view := summaryView{
		Revision:     revision,
		GlobalFee:    s.GlobalFee,
		PeopleCount:  s.PeopleCount,
		Billable:     core.RoundCents(s.Billable),
		TotalFee:     core.RoundCents(s.Total),
		TotalFeeText: core.FormatAmount(s.Total),
		Teams:        make([]teamSummaryView, 0, len(s.Teams)),
		Unassigned:   lineViews(s.Unassigned),
	}
	for _, t := range s.Teams {
		view.Teams = append(view.Teams, teamSummaryView{
			TeamID:   t.TeamID,
			Name:     t.Name,
			Fee:      t.Fee,
			Billable: core.RoundCents(t.Billable),
			TotalFee: core.RoundCents(t.Total),
			People:   lineViews(t.People),
		})
	}
	return view
}

func lineViews(lines []core.PersonLine) []personLineView {
	out := make([]personLineView, len(lines))
	for i, l := range lines {
		out[i] = personLineView{
			PersonID:     l.PersonID,
			Name:         l.Name,
			Billable:     l.Billable,
			Fee:          l.Fee,
			FeeSource:    string(l.FeeSource),
			Contribution: core.RoundCents(l.Contribution),
		}
	}
	return out
}
