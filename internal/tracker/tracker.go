// Package tracker records campus entries and exits and reports on them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"gatelog/internal/apperr"
	"gatelog/internal/badge"
	"gatelog/internal/filter"
	"gatelog/internal/metrics"
	"gatelog/internal/model"
	"gatelog/internal/queue"
	"gatelog/internal/store"
)

// ActivityLimit caps the activity log.
const ActivityLimit = 10

const (
	msgNameRequired = "Please enter a name"
	msgRecordFailed = "Failed to record entry/exit"
	msgExitFailed   = "Failed to record exit"
)

// Publisher hands records to the sync worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// ManualInput is the manual entry form. Only Name is required.
type ManualInput struct {
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollment_no"`
	Course       string `json:"course"`
	Branch       string `json:"branch"`
	Semester     string `json:"semester"`
}

// Activity is a page of the activity log.
type Activity struct {
	Entries []model.Entry `json:"entries"`
	Matched int           `json:"matched"`
	Total   int           `json:"total"`
}

// Stats summarises the activity.
type Stats struct {
	TodayEntries int `json:"today_entries"`
	TodayExits   int `json:"today_exits"`
	TotalEntries int `json:"total_entries"`
	TotalExits   int `json:"total_exits"`
	TotalPeople  int `json:"total_people"`
}

// Service coordinates entry records.
type Service struct {
	repo store.Repository
	pub  Publisher
	loc  *time.Location
	now  func() time.Time

	mu     sync.RWMutex
	people []model.Person
}

// NewService creates a tracker. pub may be nil when nothing is synced.
func NewService(repo store.Repository, pub Publisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, pub: pub, loc: loc, now: time.Now}
}

// Load rebuilds the people view from the repository.
func (s *Service) Load(ctx context.Context) error {
	people, err := s.repo.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("tracker: load people: %w", err)
	}
	s.mu.Lock()
	s.people = people
	s.mu.Unlock()
	return nil
}

// PersonAdded is the roster-changed callback.
func (s *Service) PersonAdded(p model.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = append([]model.Person{p}, s.people...)
}

// PersonRemoved drops a person from the view.
func (s *Service) PersonRemoved(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.people {
		if p.ID == id {
			s.people = append(s.people[:i:i], s.people[i+1:]...)
			return
		}
	}
}

// People returns a copy of the people view.
func (s *Service) People() []model.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Person(nil), s.people...)
}

// RecordScan stores the entry or exit read from a badge.
func (s *Service) RecordScan(ctx context.Context, typ model.EntryType, p badge.Payload) (model.Entry, error) {
	if !typ.Valid() {
		return model.Entry{}, apperr.MissingField("type", fmt.Sprintf("Unknown record type %q", typ))
	}
	e := s.newEntry(typ, p.Name, p.EnrollmentNo, p.Course, p.Branch, p.Semester)
	if err := s.store(ctx, e, metrics.SourceScan); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

// RecordManual stores a hand-typed entry or exit. Blank optional fields become N/A.
func (s *Service) RecordManual(ctx context.Context, typ model.EntryType, in ManualInput) (model.Entry, error) {
	if !typ.Valid() {
		return model.Entry{}, apperr.MissingField("type", fmt.Sprintf("Unknown record type %q", typ))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Entry{}, apperr.MissingField("name", msgNameRequired)
	}
	e := s.newEntry(typ, name, orNA(in.EnrollmentNo), orNA(in.Course), orNA(in.Branch), orNA(in.Semester))
	if err := s.store(ctx, e, metrics.SourceManual); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

// ExitPrompt is the question asked before a quick exit.
func ExitPrompt(name string) string {
	return fmt.Sprintf("Are you sure you want to mark %s as exited?\n\nThis will record an exit entry with the same details.", name)
}

// QuickExit records an exit copying the identity of entry id. Without
// confirmation nothing is stored and the prompt is returned as the error.
func (s *Service) QuickExit(ctx context.Context, id string, confirmed bool) (model.Entry, error) {
	src, err := s.repo.GetEntry(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Entry{}, apperr.NotFound("Entry not found")
	}
	if err != nil {
		log.Printf("tracker: get entry %s: %v", id, err)
		return model.Entry{}, apperr.Internal(msgExitFailed)
	}
	if src.Type != model.TypeEntry {
		return model.Entry{}, apperr.Invalid("Only entry records can be marked as exited")
	}
	if !confirmed {
		return model.Entry{}, apperr.ConfirmationRequired(ExitPrompt(src.PersonName))
	}
	e := s.newEntry(model.TypeExit, src.PersonName, src.EnrollmentNo, src.Course, src.Branch, src.Semester)
	if err := s.store(ctx, e, metrics.SourceQuickExit); err != nil {
		return model.Entry{}, apperr.Internal(msgExitFailed)
	}
	return e, nil
}

// Activity returns the most recent matches of q.
func (s *Service) Activity(ctx context.Context, q filter.EntryQuery) (Activity, error) {
	all, err := s.repo.ListEntries(ctx)
	if err != nil {
		return Activity{}, fmt.Errorf("tracker: list entries: %w", err)
	}
	matched := filter.Entries(all, q)
	page := matched
	if len(page) > ActivityLimit {
		page = page[:ActivityLimit]
	}
	if page == nil {
		page = []model.Entry{}
	}
	return Activity{Entries: page, Matched: len(matched), Total: len(all)}, nil
}

// FilterOptions lists the facet values present in the activity.
func (s *Service) FilterOptions(ctx context.Context) (filter.Options, error) {
	all, err := s.repo.ListEntries(ctx)
	if err != nil {
		return filter.Options{}, fmt.Errorf("tracker: list entries: %w", err)
	}
	return filter.EntryOptions(all), nil
}

// Stats counts today's and all-time entries and exits.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.repo.ListEntries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("tracker: list entries: %w", err)
	}
	today := model.LocalDate(s.now(), s.loc)
	var st Stats
	for _, e := range all {
		switch e.Type {
		case model.TypeEntry:
			st.TotalEntries++
			if e.Date == today {
				st.TodayEntries++
			}
		case model.TypeExit:
			st.TotalExits++
			if e.Date == today {
				st.TodayExits++
			}
		}
	}
	s.mu.RLock()
	st.TotalPeople = len(s.people)
	s.mu.RUnlock()
	return st, nil
}

func (s *Service) newEntry(typ model.EntryType, name, enrollment, course, branch, semester string) model.Entry {
	now := s.now()
	return model.Entry{
		ID:           ulid.Make().String(),
		Type:         typ,
		PersonName:   name,
		EnrollmentNo: enrollment,
		Course:       course,
		Branch:       branch,
		Semester:     semester,
		Timestamp:    now.UTC(),
		Date:         model.LocalDate(now, s.loc),
		Time:         model.LocalTime(now, s.loc),
		SyncStatus:   model.SyncPending,
	}
}

// store persists e and queues it for sync. A failed publish is only logged.
func (s *Service) store(ctx context.Context, e model.Entry, source string) error {
	if err := s.repo.AddEntry(ctx, e); err != nil {
		log.Printf("tracker: add entry: %v", err)
		return apperr.Internal(msgRecordFailed)
	}
	metrics.EntriesRecorded.WithLabelValues(string(e.Type), source).Inc()
	if s.pub == nil {
		return nil
	}
	if err := s.pub.Publish(ctx, queue.Entry(e.ID)); err != nil {
		metrics.PublishFailures.WithLabelValues(queue.TypeEntry).Inc()
		log.Printf("tracker: queue entry %s: %v", e.ID, err)
	}
	return nil
}

func orNA(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return model.NotAvailable
	}
	return v
}
