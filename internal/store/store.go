package store

import (
	"context"
	"errors"
	"time"

	"gatelog/internal/model"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("store: not found")

// Repository is the single source of truth for people and entries.
// Entries and people are listed newest first.
type Repository interface {
	AddEntry(ctx context.Context, e model.Entry) error
	GetEntry(ctx context.Context, id string) (model.Entry, error)
	ListEntries(ctx context.Context) ([]model.Entry, error)
	SetEntrySyncStatus(ctx context.Context, id string, status model.SyncStatus) error

	AddPerson(ctx context.Context, p model.Person) error
	GetPerson(ctx context.Context, id string) (model.Person, error)
	ListPeople(ctx context.Context) ([]model.Person, error)
	// DeletePerson removes a person and remembers the id so remote imports
	// skip it.
	DeletePerson(ctx context.Context, id string) error
	PersonDeleted(ctx context.Context, id string) (bool, error)
	SetPersonSyncStatus(ctx context.Context, id string, status model.SyncStatus) error
	SetPersonQRCodeURL(ctx context.Context, id, url string) error

	SyncCounts(ctx context.Context) (SyncCounts, error)
}

// Stations persists scanner station registrations and their refresh tokens.
type Stations interface {
	UpsertStation(ctx context.Context, stationID string) error
	SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error
	// ConsumeRefreshToken revokes a live token and returns its station.
	// Unknown, revoked and expired tokens yield ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error)
}

// SyncCounts tallies records per sync status.
type SyncCounts struct {
	Entries map[model.SyncStatus]int `json:"entries"`
	People  map[model.SyncStatus]int `json:"people"`
}

func newSyncCounts() SyncCounts {
	return SyncCounts{
		Entries: map[model.SyncStatus]int{},
		People:  map[model.SyncStatus]int{},
	}
}
