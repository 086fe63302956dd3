package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/model"
	"gatelog/internal/store"
)

type backend interface {
	store.Repository
	store.Stations
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	db, err := store.NewDB(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	return map[string]backend{
		"memory": store.NewMemory(),
		"sqlite": store.NewSQLRepository(db),
	}
}

var base = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func entry(id string, typ model.EntryType, at time.Time) model.Entry {
	return model.Entry{
		ID:           id,
		Type:         typ,
		PersonName:   "Asha " + id,
		EnrollmentNo: "EN" + id,
		Course:       "B.E",
		Branch:       "IT",
		Semester:     "3",
		Timestamp:    at,
		Date:         model.LocalDate(at, time.UTC),
		Time:         model.LocalTime(at, time.UTC),
		SyncStatus:   model.SyncPending,
	}
}

func person(id string, at time.Time) model.Person {
	return model.Person{
		ID:           id,
		Name:         "Ravi " + id,
		EnrollmentNo: "EN" + id,
		Email:        id + "@campus.test",
		Phone:        "555-0100",
		Course:       "BSc",
		Branch:       "Civil Engineering",
		Semester:     "2",
		CreatedAt:    at,
		QRCodeData:   "data:image/png;base64,AAAA",
		SyncStatus:   model.SyncPending,
	}
}

func TestEntries(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.AddEntry(ctx, entry("a", model.TypeEntry, base)))
			require.NoError(t, repo.AddEntry(ctx, entry("b", model.TypeExit, base.Add(time.Minute))))
			require.NoError(t, repo.AddEntry(ctx, entry("c", model.TypeEntry, base.Add(2*time.Minute))))

			list, err := repo.ListEntries(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

			got, err := repo.GetEntry(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, model.TypeExit, got.Type)
			assert.Equal(t, "05/03/2024", got.Date)
			assert.Equal(t, "09:31:00", got.Time)
			assert.True(t, got.Timestamp.Equal(base.Add(time.Minute)))

			_, err = repo.GetEntry(ctx, "missing")
			assert.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, repo.SetEntrySyncStatus(ctx, "a", model.SyncSynced))
			assert.ErrorIs(t, repo.SetEntrySyncStatus(ctx, "missing", model.SyncSynced), store.ErrNotFound)

			counts, err := repo.SyncCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, counts.Entries[model.SyncSynced])
			assert.Equal(t, 2, counts.Entries[model.SyncPending])
		})
	}
}

func TestPeople(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.AddPerson(ctx, person("p1", base)))
			require.NoError(t, repo.AddPerson(ctx, person("p2", base.Add(time.Second))))

			list, err := repo.ListPeople(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "p2", list[0].ID)

			require.NoError(t, repo.SetPersonQRCodeURL(ctx, "p1", "https://img.test/p1.png"))
			require.NoError(t, repo.SetPersonSyncStatus(ctx, "p1", model.SyncFailed))
			got, err := repo.GetPerson(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, "https://img.test/p1.png", got.QRCodeURL)
			assert.Equal(t, model.SyncFailed, got.SyncStatus)
			assert.Equal(t, "p1@campus.test", got.Email)

			deleted, err := repo.PersonDeleted(ctx, "p1")
			require.NoError(t, err)
			assert.False(t, deleted)

			require.NoError(t, repo.DeletePerson(ctx, "p1"))
			_, err = repo.GetPerson(ctx, "p1")
			assert.ErrorIs(t, err, store.ErrNotFound)
			deleted, err = repo.PersonDeleted(ctx, "p1")
			require.NoError(t, err)
			assert.True(t, deleted)
			assert.ErrorIs(t, repo.DeletePerson(ctx, "p1"), store.ErrNotFound)

			counts, err := repo.SyncCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, counts.People[model.SyncPending])
			assert.Zero(t, counts.People[model.SyncFailed])
		})
	}
}

func TestRefreshTokens(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			require.NoError(t, repo.UpsertStation(ctx, "gate-1"))
			require.NoError(t, repo.UpsertStation(ctx, "gate-1"))
			require.NoError(t, repo.SaveRefreshToken(ctx, "gate-1", "tok-live", now.Add(time.Hour)))
			require.NoError(t, repo.SaveRefreshToken(ctx, "gate-1", "tok-old", now.Add(-time.Minute)))

			station, err := repo.ConsumeRefreshToken(ctx, "tok-live", now)
			require.NoError(t, err)
			assert.Equal(t, "gate-1", station)

			_, err = repo.ConsumeRefreshToken(ctx, "tok-live", now)
			assert.ErrorIs(t, err, store.ErrNotFound, "token is single use")
			_, err = repo.ConsumeRefreshToken(ctx, "tok-old", now)
			assert.ErrorIs(t, err, store.ErrNotFound, "expired")
			_, err = repo.ConsumeRefreshToken(ctx, "nope", now)
			assert.ErrorIs(t, err, store.ErrNotFound)

			assert.Error(t, repo.UpsertStation(ctx, ""))
		})
	}
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	_, err := store.NewDB("oracle", "x")
	assert.Error(t, err)
}
