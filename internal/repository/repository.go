// Package repository holds the team and person collections in memory and
// writes every change through to a kv.Store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"teamfee/internal/core"
	"teamfee/internal/kv"
)

// State is the complete data set. It is seeded from the store at startup
// and can be injected directly in tests.
type State struct {
	Teams     []core.Team
	People    []core.Person
	GlobalFee float64
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Teams:     make([]core.Team, len(s.Teams)),
		People:    make([]core.Person, len(s.People)),
		GlobalFee: s.GlobalFee,
	}
	for i, t := range s.Teams {
		out.Teams[i] = t.Clone()
	}
	for i, p := range s.People {
		out.People[i] = p.Clone()
	}
	return out
}

// Repository serializes all operations. Every mutation persists the changed
// collections before returning; when persistence fails the in-memory state
// is left as it was before the call.
type Repository struct {
	mu       sync.Mutex
	store    kv.Store
	state    State
	revision uint64
	newID    func() string
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator replaces the default UUIDv4 generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// New wraps an already loaded state. The state is copied.
func New(store kv.Store, state State, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		state: state.Clone(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads teams, people and the global fee from store. Missing keys yield
// empty collections and defaultGlobalFee; undecodable values are logged and
// treated as missing.
func Load(ctx context.Context, store kv.Store, defaultGlobalFee float64, opts ...Option) (*Repository, error) {
	state, err := ReadState(ctx, store, defaultGlobalFee)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Repository loaded",
		"teams", len(state.Teams),
		"people", len(state.People),
		"global_fee", state.GlobalFee)
	return New(store, state, opts...), nil
}

// ReadState decodes the persisted layout without building a Repository.
func ReadState(ctx context.Context, store kv.Store, defaultGlobalFee float64) (State, error) {
	state := State{GlobalFee: defaultGlobalFee}

	if err := readKey(ctx, store, kv.KeyTeams, &state.Teams); err != nil {
		return State{}, err
	}
	if err := readKey(ctx, store, kv.KeyPeople, &state.People); err != nil {
		return State{}, err
	}

	raw, found, err := store.Get(ctx, kv.KeyGlobalFee)
	if err != nil {
		return State{}, fmt.Errorf("read %s: %w", kv.KeyGlobalFee, err)
	}
	if found {
		if fee, ok := core.DecodeNumber(raw); ok {
			state.GlobalFee = fee
		} else {
			slog.WarnContext(ctx, "Ignoring malformed stored value", "key", kv.KeyGlobalFee)
		}
	}

	if state.Teams == nil {
		state.Teams = []core.Team{}
	}
	if state.People == nil {
		state.People = []core.Person{}
	}
	return state, nil
}

func readKey[T any](ctx context.Context, store kv.Store, key string, dst *[]T) error {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.WarnContext(ctx, "Ignoring malformed stored value", "key", key, "error", err)
		return nil
	}
	*dst = decodeList[T](raw)
	if skipped := len(items) - len(*dst); skipped > 0 {
		slog.WarnContext(ctx, "Skipping malformed stored elements", "key", key, "skipped", skipped)
	}
	return nil
}

// ListTeams returns a copy of all teams in creation order.
func (r *Repository) ListTeams() []core.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone().Teams
}

// ListPeople returns a copy of all people in creation order.
func (r *Repository) ListPeople() []core.Person {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone().People
}

// PeopleInTeam returns the members of teamID in creation order.
func (r *Repository) PeopleInTeam(teamID string) []core.Person {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []core.Person{}
	for _, p := range r.state.People {
		if p.TeamID == teamID {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Team looks up a team by id.
func (r *Repository) Team(id string) (core.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.teamIndex(id); i >= 0 {
		return r.state.Teams[i].Clone(), true
	}
	return core.Team{}, false
}

// Person looks up a person by id.
func (r *Repository) Person(id string) (core.Person, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.personIndex(id); i >= 0 {
		return r.state.People[i].Clone(), true
	}
	return core.Person{}, false
}

// GlobalFee returns the current default fee percentage.
func (r *Repository) GlobalFee() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.GlobalFee
}

// Snapshot returns a deep copy of the whole state together with its revision.
func (r *Repository) Snapshot() (State, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), r.revision
}

// Revision increases by one on every successful mutation.
func (r *Repository) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// AddTeam creates a team. An empty or whitespace-only name is rejected.
func (r *Repository) AddTeam(ctx context.Context, name string, fee *float64) (core.Team, error) {
	team := core.Team{Name: strings.TrimSpace(name), Fee: cloneFee(fee)}
	if err := team.Validate(); err != nil {
		return core.Team{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	team.ID = r.uniqueID(func(id string) bool { return r.teamIndex(id) >= 0 })
	next := r.state.Clone()
	next.Teams = append(next.Teams, team)
	if err := r.commit(ctx, next, kv.KeyTeams); err != nil {
		return core.Team{}, err
	}
	return team.Clone(), nil
}

// UpdateTeam replaces the name and fee of an existing team.
func (r *Repository) UpdateTeam(ctx context.Context, id, name string, fee *float64) (core.Team, error) {
	team := core.Team{ID: id, Name: strings.TrimSpace(name), Fee: cloneFee(fee)}
	if err := team.Validate(); err != nil {
		return core.Team{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.teamIndex(id)
	if i < 0 {
		return core.Team{}, core.ErrTeamNotFound
	}
	next := r.state.Clone()
	next.Teams[i] = team
	if err := r.commit(ctx, next, kv.KeyTeams); err != nil {
		return core.Team{}, err
	}
	return team.Clone(), nil
}

// DeleteTeam removes the team and every person assigned to it. It returns
// the number of people removed.
func (r *Repository) DeleteTeam(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.teamIndex(id)
	if i < 0 {
		return 0, core.ErrTeamNotFound
	}
	next := r.state.Clone()
	next.Teams = append(next.Teams[:i], next.Teams[i+1:]...)
	kept := next.People[:0]
	for _, p := range next.People {
		if p.TeamID != id {
			kept = append(kept, p)
		}
	}
	removed := len(next.People) - len(kept)
	next.People = kept
	if err := r.commit(ctx, next, kv.KeyTeams, kv.KeyPeople); err != nil {
		return 0, err
	}
	return removed, nil
}

// AddPerson creates a person in an existing team. A missing billable amount
// is passed as 0.
func (r *Repository) AddPerson(ctx context.Context, teamID, name string, billable float64, fee *float64) (core.Person, error) {
	person := core.Person{
		TeamID:   strings.TrimSpace(teamID),
		Name:     strings.TrimSpace(name),
		Billable: billable,
		Fee:      cloneFee(fee),
	}
	if err := person.Validate(); err != nil {
		return core.Person{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.teamIndex(person.TeamID) < 0 {
		return core.Person{}, fmt.Errorf("%w: %w", core.ErrTeamRequired, core.ErrTeamNotFound)
	}
	person.ID = r.uniqueID(func(id string) bool { return r.personIndex(id) >= 0 })
	next := r.state.Clone()
	next.People = append(next.People, person)
	if err := r.commit(ctx, next, kv.KeyPeople); err != nil {
		return core.Person{}, err
	}
	return person.Clone(), nil
}

// UpdatePerson replaces name, billable and fee. The team assignment is kept.
func (r *Repository) UpdatePerson(ctx context.Context, id, name string, billable float64, fee *float64) (core.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.personIndex(id)
	if i < 0 {
		return core.Person{}, core.ErrPersonNotFound
	}
	person := r.state.People[i].Clone()
	person.Name = strings.TrimSpace(name)
	person.Billable = billable
	person.Fee = cloneFee(fee)
	if err := person.Validate(); err != nil {
		return core.Person{}, err
	}

	next := r.state.Clone()
	next.People[i] = person
	if err := r.commit(ctx, next, kv.KeyPeople); err != nil {
		return core.Person{}, err
	}
	return person.Clone(), nil
}

// DeletePerson removes exactly one person.
func (r *Repository) DeletePerson(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.personIndex(id)
	if i < 0 {
		return core.ErrPersonNotFound
	}
	next := r.state.Clone()
	next.People = append(next.People[:i], next.People[i+1:]...)
	return r.commit(ctx, next, kv.KeyPeople)
}

// SetGlobalFee changes the default fee percentage.
func (r *Repository) SetGlobalFee(ctx context.Context, fee float64) error {
	if err := core.ValidateFee(fee); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.Clone()
	next.GlobalFee = fee
	return r.commit(ctx, next, kv.KeyGlobalFee)
}

// Replace swaps both collections wholesale. The global fee is untouched.
func (r *Repository) Replace(ctx context.Context, teams []core.Team, people []core.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := State{
		Teams:     teams,
		People:    people,
		GlobalFee: r.state.GlobalFee,
	}.Clone()
	return r.commit(ctx, next, kv.KeyTeams, kv.KeyPeople)
}

// commit persists the given keys of next and then installs it. Callers hold mu.
func (r *Repository) commit(ctx context.Context, next State, keys ...string) error {
	entries := make(map[string][]byte, len(keys))
	for _, key := range keys {
		var (
			b   []byte
			err error
		)
		switch key {
		case kv.KeyTeams:
			b, err = json.Marshal(next.Teams)
		case kv.KeyPeople:
			b, err = json.Marshal(next.People)
		case kv.KeyGlobalFee:
			b, err = json.Marshal(next.GlobalFee)
		default:
			err = fmt.Errorf("unknown key %q", key)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = b
	}

	if err := kv.SetAll(ctx, r.store, entries); err != nil {
		return fmt.Errorf("persist %s: %w", strings.Join(keys, ","), err)
	}
	r.state = next
	r.revision++
	return nil
}

func (r *Repository) uniqueID(taken func(string) bool) string {
	for {
		if id := r.newID(); id != "" && !taken(id) {
			return id
		}
	}
}

func (r *Repository) teamIndex(id string) int {
	for i, t := range r.state.Teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) personIndex(id string) int {
	for i, p := range r.state.People {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneFee(fee *float64) *float64 {
	if fee == nil {
		return nil
	}
	v := *fee
	return &v
}
