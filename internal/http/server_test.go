package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"teamfee/internal/core"
	"teamfee/internal/kv/memory"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/repository"
	"teamfee/internal/services"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Format: log.FormatText, Output: io.Discard})
}

func newTestServer(t *testing.T, ratePerMinute int) *Server {
	t.Helper()
	repo, err := repository.Load(context.Background(), memory.New(), core.DefaultGlobalFee)
	if err != nil {
		t.Fatalf("load repository: %v", err)
	}
	svc := services.NewTeamService(repo, nil, services.WithLogger(quietLogger()))
	srv := NewServer(ServerConfig{
		Addr:               ":0",
		Service:            svc,
		Logger:             quietLogger(),
		Metrics:            metrics.NewManager(),
		RateLimitPerMinute: ratePerMinute,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status=%d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func TestIndexHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 60)

	rr := do(t, srv, http.MethodGet, "/", "")
	mustStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "Team fees") {
		t.Fatalf("index body missing heading")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/app.js"} {
		mustStatus(t, do(t, srv, http.MethodGet, path, ""), http.StatusOK)
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	mustStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "teamfee_http_requests_total") {
		t.Fatalf("metrics missing http counter:\n%s", rr.Body.String())
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	repo := repository.New(memory.New(), repository.State{GlobalFee: core.DefaultGlobalFee})
	srv := NewServer(ServerConfig{
		Service: services.NewTeamService(repo, nil, services.WithLogger(quietLogger())),
		Logger:  quietLogger(),
		Ready:   func(context.Context) error { return context.DeadlineExceeded },
	})
	defer srv.Shutdown(context.Background())

	mustStatus(t, do(t, srv, http.MethodGet, "/readyz", ""), http.StatusServiceUnavailable)
}

func TestSummaryScenario(t *testing.T) {
	srv := newTestServer(t, 60)

	rr := do(t, srv, http.MethodPost, "/api/teams", `{"name":"Eng","fee":"10"}`)
	mustStatus(t, rr, http.StatusCreated)
	eng := decode[core.Team](t, rr)
	if eng.ID == "" || eng.Fee == nil || *eng.Fee != 10 {
		t.Fatalf("unexpected team: %+v", eng)
	}

	rr = do(t, srv, http.MethodPost, "/api/teams", "name=Ops&fee=")
	mustStatus(t, rr, http.StatusCreated)
	ops := decode[core.Team](t, rr)
	if ops.Fee != nil {
		t.Fatalf("blank fee should be unset, got %v", *ops.Fee)
	}

	mustStatus(t, do(t, srv, http.MethodPost, "/api/people",
		`{"teamId":"`+eng.ID+`","name":"Alice","billable":1000}`), http.StatusCreated)
	mustStatus(t, do(t, srv, http.MethodPost, "/api/people",
		`{"teamId":"`+ops.ID+`","name":"Bob","billable":"500","fee":"20"}`), http.StatusCreated)

	rr = do(t, srv, http.MethodGet, "/api/summary", "")
	mustStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("X-Cache"); got != "miss" {
		t.Fatalf("first summary X-Cache=%q", got)
	}
	view := decode[summaryView](t, rr)
	if view.PeopleCount != 2 || view.TotalFeeText != "200.00" || view.TotalFee != 200 {
		t.Fatalf("unexpected summary: %+v", view)
	}
	if len(view.Teams) != 2 || view.Teams[0].People[0].Contribution != 100 || view.Teams[0].People[0].FeeSource != "team" {
		t.Fatalf("unexpected team breakdown: %+v", view.Teams)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary", "")
	if got := rr.Header().Get("X-Cache"); got != "hit" {
		t.Fatalf("second summary X-Cache=%q", got)
	}

	mustStatus(t, do(t, srv, http.MethodPut, "/api/settings", `{"globalFee":"7.5"}`), http.StatusOK)
	rr = do(t, srv, http.MethodGet, "/api/summary", "")
	if got := rr.Header().Get("X-Cache"); got != "miss" {
		t.Fatalf("summary after mutation X-Cache=%q", got)
	}
	if view := decode[summaryView](t, rr); view.GlobalFee != 7.5 {
		t.Fatalf("global fee=%v want 7.5", view.GlobalFee)
	}
}

func TestDeleteTeamCascades(t *testing.T) {
	srv := newTestServer(t, 60)

	keep := decode[core.Team](t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"Keep"}`))
	gone := decode[core.Team](t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"Gone"}`))
	for _, teamID := range []string{keep.ID, gone.ID, gone.ID} {
		mustStatus(t, do(t, srv, http.MethodPost, "/api/people",
			`{"teamId":"`+teamID+`","name":"P"}`), http.StatusCreated)
	}

	rr := do(t, srv, http.MethodDelete, "/api/teams/"+gone.ID, "")
	mustStatus(t, rr, http.StatusOK)
	if got := decode[map[string]any](t, rr)["removedPeople"]; got != float64(2) {
		t.Fatalf("removedPeople=%v want 2", got)
	}

	people := decode[[]core.Person](t, do(t, srv, http.MethodGet, "/api/people", ""))
	if len(people) != 1 || people[0].TeamID != keep.ID {
		t.Fatalf("unexpected people after cascade: %+v", people)
	}
	filtered := decode[[]core.Person](t, do(t, srv, http.MethodGet, "/api/people?teamId="+gone.ID, ""))
	if len(filtered) != 0 {
		t.Fatalf("deleted team still has people: %+v", filtered)
	}
}

func TestValidationAndNotFound(t *testing.T) {
	srv := newTestServer(t, 60)
	team := decode[core.Team](t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"Eng"}`))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"blank team name", http.MethodPost, "/api/teams", `{"name":"   "}`, http.StatusUnprocessableEntity},
		{"non numeric fee", http.MethodPost, "/api/teams", `{"name":"X","fee":"abc"}`, http.StatusUnprocessableEntity},
		{"person without team", http.MethodPost, "/api/people", `{"name":"Alice"}`, http.StatusUnprocessableEntity},
		{"person in missing team", http.MethodPost, "/api/people", `{"teamId":"nope","name":"Alice"}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/teams", `{"name":`, http.StatusBadRequest},
		{"array body", http.MethodPost, "/api/teams", `[]`, http.StatusBadRequest},
		{"get missing team", http.MethodGet, "/api/teams/nope", "", http.StatusNotFound},
		{"get missing person", http.MethodGet, "/api/people/nope", "", http.StatusNotFound},
		{"update missing team", http.MethodPut, "/api/teams/nope", `{"name":"X"}`, http.StatusNotFound},
		{"delete missing team", http.MethodDelete, "/api/teams/nope", "", http.StatusNotFound},
		{"update missing person", http.MethodPut, "/api/people/nope", `{"name":"X"}`, http.StatusNotFound},
		{"delete missing person", http.MethodDelete, "/api/people/nope", "", http.StatusNotFound},
		{"settings without fee", http.MethodPut, "/api/settings", `{}`, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodPatch, "/api/teams", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			mustStatus(t, rr, tt.want)
			if tt.want != http.StatusMethodNotAllowed && decode[errorBody](t, rr).Error == "" {
				t.Fatalf("missing error message")
			}
		})
	}

	teams := decode[[]core.Team](t, do(t, srv, http.MethodGet, "/api/teams", ""))
	if len(teams) != 1 || teams[0].Name != "Eng" {
		t.Fatalf("rejected requests changed state: %+v", teams)
	}
}

func TestNonNumericBillableIsZero(t *testing.T) {
	srv := newTestServer(t, 60)
	team := decode[core.Team](t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"Eng"}`))

	tests := []struct {
		name string
		body string
	}{
		{"json string", `{"teamId":"` + team.ID + `","name":"Alice","billable":"abc"}`},
		{"json object", `{"teamId":"` + team.ID + `","name":"Bob","billable":{"n":1}}`},
		{"form value", "teamId=" + team.ID + "&name=Carol&billable=lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/people", tt.body)
			mustStatus(t, rr, http.StatusCreated)
			created := decode[core.Person](t, rr)
			if created.Billable != 0 {
				t.Fatalf("billable = %v, want 0", created.Billable)
			}

			rr = do(t, srv, http.MethodGet, "/api/people/"+created.ID, "")
			mustStatus(t, rr, http.StatusOK)
			if got := decode[core.Person](t, rr); got.Name != created.Name || got.TeamID != team.ID {
				t.Fatalf("stored person = %+v", got)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/teams/"+team.ID, "")
	mustStatus(t, rr, http.StatusOK)
	if got := decode[core.Team](t, rr); got.Name != "Eng" {
		t.Fatalf("team = %+v", got)
	}

	// Fees stay strict
	mustStatus(t, do(t, srv, http.MethodPost, "/api/people",
		`{"teamId":"`+team.ID+`","name":"Dan","billable":"abc","fee":"abc"}`), http.StatusUnprocessableEntity)
}

func TestExportImport(t *testing.T) {
	srv := newTestServer(t, 60)
	team := decode[core.Team](t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"Eng","fee":10}`))
	mustStatus(t, do(t, srv, http.MethodPost, "/api/people",
		`{"teamId":"`+team.ID+`","name":"Alice","billable":"12.5"}`), http.StatusCreated)

	rr := do(t, srv, http.MethodGet, "/api/export", "")
	mustStatus(t, rr, http.StatusOK)
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, repository.ExportFilename) {
		t.Fatalf("Content-Disposition=%q", cd)
	}
	if !strings.Contains(rr.Body.String(), "\n  \"teams\": [") {
		t.Fatalf("export not indented with two spaces:\n%s", rr.Body.String())
	}
	exported := rr.Body.String()

	rr = do(t, srv, http.MethodPost, "/api/import",
		`{"teams":"not-an-array","people":[{"id":"p1","teamId":"t1","name":"Solo","billable":"3"}]}`)
	mustStatus(t, rr, http.StatusOK)
	if got := decode[map[string]int](t, rr); got["teams"] != 0 || got["people"] != 1 {
		t.Fatalf("import counts=%v", got)
	}
	people := decode[[]core.Person](t, do(t, srv, http.MethodGet, "/api/people", ""))
	if len(people) != 1 || people[0].Billable != 3 {
		t.Fatalf("unexpected people after import: %+v", people)
	}

	mustStatus(t, do(t, srv, http.MethodPost, "/api/import", `not json`), http.StatusBadRequest)
	if people := decode[[]core.Person](t, do(t, srv, http.MethodGet, "/api/people", "")); len(people) != 1 {
		t.Fatalf("rejected import changed state: %+v", people)
	}

	mustStatus(t, do(t, srv, http.MethodPost, "/api/import", exported), http.StatusOK)
	teams := decode[[]core.Team](t, do(t, srv, http.MethodGet, "/api/teams", ""))
	if len(teams) != 1 || teams[0].ID != team.ID {
		t.Fatalf("round trip lost teams: %+v", teams)
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		mustStatus(t, do(t, srv, http.MethodPost, "/api/teams", `{"name":"T"}`), http.StatusCreated)
	}
	rr := do(t, srv, http.MethodPost, "/api/teams", `{"name":"T"}`)
	mustStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}

	mustStatus(t, do(t, srv, http.MethodGet, "/api/teams", ""), http.StatusOK)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrEmptyName, http.StatusUnprocessableEntity},
		{core.ErrInvalidFee, http.StatusUnprocessableEntity},
		{core.ErrTeamNotFound, http.StatusNotFound},
		{core.ErrPersonNotFound, http.StatusNotFound},
		{repository.ErrInvalidDocument, http.StatusBadRequest},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Fatalf("statusForError(%v)=%d want %d", tt.err, got, tt.want)
		}
	}
}
