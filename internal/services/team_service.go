package services

import (
	"context"
	"fmt"
	"io"

	"teamfee/internal/amqp"
	"teamfee/internal/core"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/repository"
)

// Publisher delivers change notifications to downstream consumers.
type Publisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// TeamService orchestrates repository mutations with change notifications.
// The repository is the source of truth: publishing is best effort.
type TeamService struct {
	repo      *repository.Repository
	publisher Publisher
	metrics   *metrics.Manager
	logger    *log.Logger
	events    *log.StructuredLogger
}

// Option configures a TeamService.
type Option func(*TeamService)

// WithMetrics records mutations and summary gauges on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *TeamService) { s.metrics = m }
}

// WithLogger replaces the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *TeamService) { s.logger = l }
}

func NewTeamService(repo *repository.Repository, publisher Publisher, opts ...Option) *TeamService {
	s := &TeamService{
		repo:      repo,
		publisher: publisher,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentService),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

func (s *TeamService) Teams() []core.Team {
	return s.repo.ListTeams()
}

// People lists everyone, or only the members of teamID when it is set.
func (s *TeamService) People(teamID string) []core.Person {
	if teamID == "" {
		return s.repo.ListPeople()
	}
	return s.repo.PeopleInTeam(teamID)
}

func (s *TeamService) Team(id string) (core.Team, bool) {
	return s.repo.Team(id)
}

func (s *TeamService) Person(id string) (core.Person, bool) {
	return s.repo.Person(id)
}

func (s *TeamService) GlobalFee() float64 {
	return s.repo.GlobalFee()
}

// Revision is the repository revision; it changes on every committed mutation.
func (s *TeamService) Revision() uint64 {
	return s.repo.Revision()
}

// Summary computes the current summary and the revision it reflects.
func (s *TeamService) Summary() (core.Summary, uint64) {
	state, rev := s.repo.Snapshot()
	summary := core.Summarize(state.People, state.Teams, state.GlobalFee)
	s.metrics.ObserveSummary(summary)
	return summary, rev
}

func (s *TeamService) CreateTeam(ctx context.Context, name string, fee *float64) (core.Team, error) {
	team, err := s.repo.AddTeam(ctx, name, fee)
	s.after(ctx, amqp.CollectionTeams, amqp.OperationCreate, team.ID, err)
	return team, err
}

func (s *TeamService) UpdateTeam(ctx context.Context, id, name string, fee *float64) (core.Team, error) {
	team, err := s.repo.UpdateTeam(ctx, id, name, fee)
	s.after(ctx, amqp.CollectionTeams, amqp.OperationUpdate, id, err)
	return team, err
}

// DeleteTeam removes a team and its people, returning how many people went with it.
func (s *TeamService) DeleteTeam(ctx context.Context, id string) (int, error) {
	removed, err := s.repo.DeleteTeam(ctx, id)
	s.after(ctx, amqp.CollectionTeams, amqp.OperationDelete, id, err)
	if err == nil && removed > 0 {
		s.logger.InfoContext(ctx, "Team deleted with members", log.FieldTeamID, id, log.FieldRemoved, removed)
	}
	return removed, err
}

func (s *TeamService) CreatePerson(ctx context.Context, teamID, name string, billable float64, fee *float64) (core.Person, error) {
	person, err := s.repo.AddPerson(ctx, teamID, name, billable, fee)
	s.after(ctx, amqp.CollectionPeople, amqp.OperationCreate, person.ID, err)
	return person, err
}

func (s *TeamService) UpdatePerson(ctx context.Context, id, name string, billable float64, fee *float64) (core.Person, error) {
	person, err := s.repo.UpdatePerson(ctx, id, name, billable, fee)
	s.after(ctx, amqp.CollectionPeople, amqp.OperationUpdate, id, err)
	return person, err
}

func (s *TeamService) DeletePerson(ctx context.Context, id string) error {
	err := s.repo.DeletePerson(ctx, id)
	s.after(ctx, amqp.CollectionPeople, amqp.OperationDelete, id, err)
	return err
}

func (s *TeamService) SetGlobalFee(ctx context.Context, fee float64) error {
	err := s.repo.SetGlobalFee(ctx, fee)
	s.after(ctx, amqp.CollectionSettings, amqp.OperationUpdate, "", err)
	return err
}

// Import replaces all teams and people with the contents of an exported document.
func (s *TeamService) Import(ctx context.Context, data []byte) (repository.Document, error) {
	doc, err := s.repo.Import(ctx, data)
	s.after(ctx, amqp.CollectionAll, amqp.OperationReplace, "", err)
	return doc, err
}

// Export writes the pretty-printed export document to w.
func (s *TeamService) Export(w io.Writer) error {
	if err := s.repo.WriteExport(w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// after records the outcome of a mutation and, when it committed, announces it.
func (s *TeamService) after(ctx context.Context, collection, operation, id string, err error) {
	s.metrics.RecordMutation(collection, operation, err)
	if err != nil {
		return
	}

	rev := s.repo.Revision()
	s.events.LogChange(ctx, collection, operation, id, rev)

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping change message",
			log.FieldCollection, collection, log.FieldOperation, operation)
		return
	}
	msg := amqp.NewChangeMessage(collection, operation, id, rev)
	if perr := s.publisher.PublishChange(ctx, msg); perr != nil {
		s.metrics.RecordPublishFailure()
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			log.FieldCollection, collection,
			log.FieldOperation, operation,
			log.FieldRevision, rev,
			log.FieldError, perr)
	}
}
