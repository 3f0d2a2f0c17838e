package core

// PersonLine is one person's row in a summary.
type PersonLine struct {
	PersonID     string
	Name         string
	Billable     float64
	Fee          float64
	FeeSource    FeeSource
	Contribution float64
}

// TeamSummary groups the lines of one team's members.
type TeamSummary struct {
	TeamID   string
	Name     string
	Fee      *float64
	People   []PersonLine
	Billable float64
	Total    float64
}

// Summary is the derived view over all teams and people. Totals keep full
// floating-point precision; round with RoundCents when presenting.
type Summary struct {
	GlobalFee   float64
	PeopleCount int
	Billable    float64
	Total       float64
	Teams       []TeamSummary
	// Unassigned holds people whose team no longer exists. They are charged
	// the global fee.
	Unassigned []PersonLine
}

// ComputeTotalFee sums billable * effective fee / 100 over people. A person
// whose team is not among teams falls through to globalFee.
func ComputeTotalFee(people []Person, teams []Team, globalFee float64) float64 {
	index := indexTeams(teams)
	var total float64
	for _, p := range people {
		total += personLine(p, index[p.TeamID], globalFee).Contribution
	}
	return total
}

// PeopleCount returns the number of people, for display.
func PeopleCount(people []Person) int {
	return len(people)
}

// Summarize computes the per-team breakdown in team order, with members in
// their original order. Total equals ComputeTotalFee for the same inputs.
func Summarize(people []Person, teams []Team, globalFee float64) Summary {
	index := indexTeams(teams)
	s := Summary{
		GlobalFee:   globalFee,
		PeopleCount: PeopleCount(people),
		Teams:       make([]TeamSummary, len(teams)),
	}
	pos := make(map[string]int, len(teams))
	for i, t := range teams {
		s.Teams[i] = TeamSummary{TeamID: t.ID, Name: t.Name, Fee: cloneFloat(t.Fee)}
		if _, dup := pos[t.ID]; !dup {
			pos[t.ID] = i
		}
	}
	for _, p := range people {
		line := personLine(p, index[p.TeamID], globalFee)
		s.Billable += line.Billable
		s.Total += line.Contribution
		i, ok := pos[p.TeamID]
		if !ok {
			s.Unassigned = append(s.Unassigned, line)
			continue
		}
		ts := &s.Teams[i]
		ts.People = append(ts.People, line)
		ts.Billable += line.Billable
		ts.Total += line.Contribution
	}
	return s
}

func personLine(p Person, team *Team, globalFee float64) PersonLine {
	billable := p.Billable
	if !isFinite(billable) {
		billable = 0
	}
	fee, src := ResolveFeeSource(p, team, globalFee)
	return PersonLine{
		PersonID:     p.ID,
		Name:         p.Name,
		Billable:     billable,
		Fee:          fee,
		FeeSource:    src,
		Contribution: Contribution(billable, fee),
	}
}

func indexTeams(teams []Team) map[string]*Team {
	index := make(map[string]*Team, len(teams))
	for i := range teams {
		if _, dup := index[teams[i].ID]; !dup {
			index[teams[i].ID] = &teams[i]
		}
	}
	return index
}
