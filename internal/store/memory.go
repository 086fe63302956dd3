package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gatelog/internal/model"
)

// Memory is an in-process Repository and Stations for dev and tests.
type Memory struct {
	mu       sync.RWMutex
	entries  []model.Entry
	people   []model.Person
	deleted  map[string]bool
	stations map[string]time.Time
	tokens   map[string]refreshToken
}

type refreshToken struct {
	stationID string
	expiresAt time.Time
	revoked   bool
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		deleted:  make(map[string]bool),
		stations: make(map[string]time.Time),
		tokens:   make(map[string]refreshToken),
	}
}

func (m *Memory) AddEntry(_ context.Context, e model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.entries {
		if x.ID == e.ID {
			return fmt.Errorf("store: duplicate entry id %s", e.ID)
		}
	}
	m.entries = append([]model.Entry{e}, m.entries...)
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Entry{}, ErrNotFound
}

func (m *Memory) ListEntries(_ context.Context) ([]model.Entry, error) {
	m.mu.RLock()
	out := append([]model.Entry(nil), m.entries...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) SetEntrySyncStatus(_ context.Context, id string, status model.SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].SyncStatus = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) AddPerson(_ context.Context, p model.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.people {
		if x.ID == p.ID {
			return fmt.Errorf("store: duplicate person id %s", p.ID)
		}
	}
	m.people = append([]model.Person{p}, m.people...)
	return nil
}

func (m *Memory) GetPerson(_ context.Context, id string) (model.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.people {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Person{}, ErrNotFound
}

func (m *Memory) ListPeople(_ context.Context) ([]model.Person, error) {
	m.mu.RLock()
	out := append([]model.Person(nil), m.people...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeletePerson(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.people {
		if p.ID == id {
			m.people = append(m.people[:i], m.people[i+1:]...)
			m.deleted[id] = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) PersonDeleted(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deleted[id], nil
}

func (m *Memory) SetPersonSyncStatus(_ context.Context, id string, status model.SyncStatus) error {
	return m.updatePerson(id, func(p *model.Person) { p.SyncStatus = status })
}

func (m *Memory) SetPersonQRCodeURL(_ context.Context, id, url string) error {
	return m.updatePerson(id, func(p *model.Person) { p.QRCodeURL = url })
}

func (m *Memory) updatePerson(id string, fn func(*model.Person)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.people {
		if m.people[i].ID == id {
			fn(&m.people[i])
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SyncCounts(_ context.Context) (SyncCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := newSyncCounts()
	for _, e := range m.entries {
		out.Entries[e.SyncStatus]++
	}
	for _, p := range m.people {
		out.People[p.SyncStatus]++
	}
	return out, nil
}

func (m *Memory) UpsertStation(_ context.Context, stationID string) error {
	if stationID == "" {
		return errors.New("station id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[stationID]; !ok {
		m.stations[stationID] = time.Now().UTC()
	}
	return nil
}

func (m *Memory) SaveRefreshToken(_ context.Context, stationID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[stationID]; !ok {
		return fmt.Errorf("store: unknown station %s", stationID)
	}
	m.tokens[token] = refreshToken{stationID: stationID, expiresAt: expiresAt}
	return nil
}

func (m *Memory) ConsumeRefreshToken(_ context.Context, token string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.revoked || !t.expiresAt.After(now) {
		return "", ErrNotFound
	}
	t.revoked = true
	m.tokens[token] = t
	return t.stationID, nil
}
