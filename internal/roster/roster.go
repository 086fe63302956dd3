// Package roster registers people and issues their QR credentials.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"gatelog/internal/apperr"
	"gatelog/internal/badge"
	"gatelog/internal/filter"
	"gatelog/internal/metrics"
	"gatelog/internal/model"
	"gatelog/internal/queue"
	"gatelog/internal/store"
)

const (
	msgAddFailed    = "Failed to add person"
	msgDeleteFailed = "Failed to delete person"
	msgNotFound     = "Person not found"
)

// Publisher hands records to the sync worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Input is the registration form. Every field is required.
type Input struct {
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollment_no"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Course       string `json:"course"`
	Branch       string `json:"branch"`
	Semester     string `json:"semester"`
}

func (in Input) trimmed() Input {
	return Input{
		Name:         strings.TrimSpace(in.Name),
		EnrollmentNo: strings.TrimSpace(in.EnrollmentNo),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Course:       strings.TrimSpace(in.Course),
		Branch:       strings.TrimSpace(in.Branch),
		Semester:     strings.TrimSpace(in.Semester),
	}
}

// validate reports the first blank field in form order.
func (in Input) validate() error {
	checks := []struct {
		field, value, msg string
	}{
		{"name", in.Name, "Please enter a name"},
		{"enrollment_no", in.EnrollmentNo, "Please enter an enrollment number"},
		{"course", in.Course, "Please select a course"},
		{"branch", in.Branch, "Please select a branch"},
		{"semester", in.Semester, "Please select a semester"},
		{"email", in.Email, "Please enter an email address"},
		{"phone", in.Phone, "Please enter a phone number"},
	}
	for _, c := range checks {
		if c.value == "" {
			return apperr.MissingField(c.field, c.msg)
		}
	}
	return nil
}

// Service manages the roster.
type Service struct {
	repo store.Repository
	pub  Publisher
	loc  *time.Location
	now  func() time.Time

	mu        sync.RWMutex
	onAdded   []func(model.Person)
	onDeleted []func(id string)
	visible   map[string]bool
}

// NewService creates a roster manager. pub may be nil.
func NewService(repo store.Repository, pub Publisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, pub: pub, loc: loc, now: time.Now, visible: make(map[string]bool)}
}

// OnPersonAdded registers a roster-changed callback, invoked once per successful add.
func (s *Service) OnPersonAdded(fn func(model.Person)) {
	s.mu.Lock()
	s.onAdded = append(s.onAdded, fn)
	s.mu.Unlock()
}

// OnPersonDeleted registers a callback invoked after a local delete.
func (s *Service) OnPersonDeleted(fn func(id string)) {
	s.mu.Lock()
	s.onDeleted = append(s.onDeleted, fn)
	s.mu.Unlock()
}

func newPersonID(now time.Time) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b [9]byte
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return "person_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(b[:])
}

// AddPerson validates in, renders the QR credential and stores the person.
func (s *Service) AddPerson(ctx context.Context, in Input) (model.Person, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return model.Person{}, err
	}

	now := s.now()
	id := newPersonID(now)
	payload := badge.Payload{
		ID:           id,
		Name:         in.Name,
		EnrollmentNo: in.EnrollmentNo,
		Course:       in.Course,
		Branch:       in.Branch,
		Semester:     in.Semester,
		Date:         model.LocalDate(now, s.loc),
		Time:         model.LocalTime(now, s.loc),
	}
	png, err := badge.Encode(payload)
	if err != nil {
		log.Printf("roster: render qr for %s: %v", id, err)
		return model.Person{}, apperr.Internal(msgAddFailed)
	}

	p := model.Person{
		ID:           id,
		Name:         in.Name,
		EnrollmentNo: in.EnrollmentNo,
		Email:        in.Email,
		Phone:        in.Phone,
		Course:       in.Course,
		Branch:       in.Branch,
		Semester:     in.Semester,
		CreatedAt:    now.UTC(),
		QRCodeData:   badge.DataURL(png),
		SyncStatus:   model.SyncPending,
	}
	if err := s.repo.AddPerson(ctx, p); err != nil {
		log.Printf("roster: add person: %v", err)
		return model.Person{}, apperr.Internal(msgAddFailed)
	}
	metrics.PeopleAdded.Inc()

	if s.pub != nil {
		if err := s.pub.Publish(ctx, queue.Person(p.ID)); err != nil {
			metrics.PublishFailures.WithLabelValues(queue.TypePerson).Inc()
			log.Printf("roster: queue person %s: %v", p.ID, err)
		}
	}

	s.mu.RLock()
	listeners := append([]func(model.Person){}, s.onAdded...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(p)
	}
	return p, nil
}

// DeletePerson removes a person from the local store only. Nothing is
// queued for the remote store.
func (s *Service) DeletePerson(ctx context.Context, id string) (model.Person, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Person{}, err
	}
	if err := s.repo.DeletePerson(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Person{}, apperr.NotFound(msgNotFound)
		}
		log.Printf("roster: delete person %s: %v", id, err)
		return model.Person{}, apperr.Internal(msgDeleteFailed)
	}
	metrics.PeopleDeleted.Inc()

	s.mu.Lock()
	delete(s.visible, id)
	listeners := append([]func(string){}, s.onDeleted...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
	return p, nil
}

// Get returns one person.
func (s *Service) Get(ctx context.Context, id string) (model.Person, error) {
	p, err := s.repo.GetPerson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Person{}, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("roster: get person %s: %w", id, err)
	}
	return p, nil
}

// ToggleQR flips whether the person's QR code is shown and returns the new state.
func (s *Service) ToggleQR(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := !s.visible[id]
	if v {
		s.visible[id] = true
	} else {
		delete(s.visible, id)
	}
	return v
}

// QRVisible reports the toggle state; hidden by default.
func (s *Service) QRVisible(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible[id]
}

// DownloadQR returns the PNG credential and its download filename.
func (s *Service) DownloadQR(ctx context.Context, id string) ([]byte, string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if p.QRCodeData == "" {
		return nil, "", apperr.NotFound("No QR code for this person")
	}
	png, err := badge.DecodeDataURL(p.QRCodeData)
	if err != nil {
		return nil, "", fmt.Errorf("roster: qr for %s: %w", id, err)
	}
	return png, badge.Filename(p.Name), nil
}

// List returns the roster, newest first, narrowed by c.
func (s *Service) List(ctx context.Context, c filter.Criteria) ([]model.Person, error) {
	people, err := s.repo.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: list people: %w", err)
	}
	out := filter.People(people, c)
	if out == nil {
		out = []model.Person{}
	}
	return out, nil
}

// FilterOptions lists the facet values present in the roster.
func (s *Service) FilterOptions(ctx context.Context) (filter.Options, error) {
	people, err := s.repo.ListPeople(ctx)
	if err != nil {
		return filter.Options{}, fmt.Errorf("roster: list people: %w", err)
	}
	return filter.PersonOptions(people), nil
}
