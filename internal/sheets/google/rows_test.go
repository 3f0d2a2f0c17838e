package google

import (
	"testing"
	"time"

	"teamfee/internal/core"
)

func TestSummaryRows(t *testing.T) {
	teams := []core.Team{{ID: "t1", Name: "Eng", Fee: core.Float(10)}}
	people := []core.Person{
		{ID: "p1", TeamID: "t1", Name: "Alice", Billable: 1000},
		{ID: "p2", TeamID: "t1", Name: "Bob", Billable: 500, Fee: core.Float(20)},
		{ID: "p3", TeamID: "gone", Name: "Carol", Billable: 100},
	}
	s := core.Summarize(people, teams, 5)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := summaryRows(s, at)

	if rows[0][1] != "2024-05-01T10:00:00Z" {
		t.Fatalf("updated cell = %v", rows[0][1])
	}
	if rows[4][1] != 205.0 {
		t.Fatalf("total cell = %v, want 205", rows[4][1])
	}
	if len(rows[5]) != 0 {
		t.Fatalf("expected blank separator, got %v", rows[5])
	}
	if rows[6][0] != "Team" {
		t.Fatalf("expected header row, got %v", rows[6])
	}

	team := rows[7]
	if team[0] != "Eng" || team[3] != 10.0 || team[5] != 200.0 {
		t.Fatalf("team row = %v", team)
	}
	alice := rows[8]
	if alice[1] != "Alice" || alice[3] != 10.0 || alice[4] != "team" || alice[5] != 100.0 {
		t.Fatalf("alice row = %v", alice)
	}
	bob := rows[9]
	if bob[4] != "person" || bob[5] != 100.0 {
		t.Fatalf("bob row = %v", bob)
	}
	if rows[10][0] != UnassignedLabel || rows[10][5] != 5.0 {
		t.Fatalf("unassigned row = %v", rows[10])
	}
	if rows[11][1] != "Carol" || rows[11][4] != "global" {
		t.Fatalf("carol row = %v", rows[11])
	}
	if len(rows) != 12 {
		t.Fatalf("rows = %d, want 12", len(rows))
	}
}

func TestSummaryRowsTeamWithoutFee(t *testing.T) {
	s := core.Summarize(nil, []core.Team{{ID: "t1", Name: "Ops"}}, 5)
	rows := summaryRows(s, time.Now())
	if rows[7][0] != "Ops" || rows[7][3] != "" {
		t.Fatalf("team row = %v", rows[7])
	}
}
