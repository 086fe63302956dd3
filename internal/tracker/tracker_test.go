package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/apperr"
	"gatelog/internal/badge"
	"gatelog/internal/filter"
	"gatelog/internal/model"
	"gatelog/internal/queue"
	"gatelog/internal/store"
)

type recorder struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (r *recorder) Publish(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

type failingRepo struct {
	store.Repository
}

func (failingRepo) AddEntry(context.Context, model.Entry) error {
	return errors.New("disk full")
}

var ist = time.FixedZone("IST", 5*3600+1800)

// newTestService ticks one second per clock read, starting 05/03/2024 20:00 UTC.
func newTestService(repo store.Repository, pub Publisher) *Service {
	s := NewService(repo, pub, ist)
	now := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return s
}

func TestRecordManualFillsBlanks(t *testing.T) {
	pub := &recorder{}
	s := newTestService(store.NewMemory(), pub)

	e, err := s.RecordManual(context.Background(), model.TypeEntry, ManualInput{Name: "  Meera  ", Course: " "})
	require.NoError(t, err)
	assert.Equal(t, "Meera", e.PersonName)
	assert.Equal(t, model.NotAvailable, e.EnrollmentNo)
	assert.Equal(t, model.NotAvailable, e.Course)
	assert.Equal(t, model.NotAvailable, e.Branch)
	assert.Equal(t, model.NotAvailable, e.Semester)
	assert.Equal(t, model.SyncPending, e.SyncStatus)
	// 20:00:01 UTC is past midnight in IST
	assert.Equal(t, "06/03/2024", e.Date)
	assert.Equal(t, "01:30:01", e.Time)
	assert.Equal(t, []queue.Message{queue.Entry(e.ID)}, pub.msgs)
}

func TestRecordManualRequiresName(t *testing.T) {
	repo := store.NewMemory()
	s := newTestService(repo, nil)

	_, err := s.RecordManual(context.Background(), model.TypeExit, ManualInput{Name: "   ", EnrollmentNo: "EN1"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
	assert.Equal(t, "Please enter a name", apperr.As(err, "").Message)

	all, _ := repo.ListEntries(context.Background())
	assert.Empty(t, all)
}

func TestRejectsUnknownType(t *testing.T) {
	s := newTestService(store.NewMemory(), nil)
	_, err := s.RecordManual(context.Background(), "visit", ManualInput{Name: "A"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
	_, err = s.RecordScan(context.Background(), "", badge.Payload{Name: "A"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

func TestRecordScanCopiesPayload(t *testing.T) {
	s := newTestService(store.NewMemory(), nil)
	e, err := s.RecordScan(context.Background(), model.TypeExit, badge.Payload{
		ID: "person_1", Name: "Kabir", EnrollmentNo: "EN42", Course: "MSc", Branch: "IT", Semester: "4",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TypeExit, e.Type)
	assert.Equal(t, "Kabir", e.PersonName)
	assert.Equal(t, "EN42", e.EnrollmentNo)
	assert.Equal(t, "MSc", e.Course)
	assert.NotEmpty(t, e.ID)
}

func TestStoreFailureIsGeneric(t *testing.T) {
	s := newTestService(failingRepo{store.NewMemory()}, nil)
	_, err := s.RecordManual(context.Background(), model.TypeEntry, ManualInput{Name: "A"})
	require.Error(t, err)
	assert.Equal(t, "Failed to record entry/exit", apperr.As(err, "").Message)
	assert.True(t, apperr.IsCode(err, apperr.CodeInternal))
}

func TestPublishFailureKeepsRecord(t *testing.T) {
	repo := store.NewMemory()
	s := newTestService(repo, &recorder{err: errors.New("redis down")})

	e, err := s.RecordManual(context.Background(), model.TypeEntry, ManualInput{Name: "A"})
	require.NoError(t, err)
	_, err = repo.GetEntry(context.Background(), e.ID)
	assert.NoError(t, err)
}

func TestQuickExit(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	s := newTestService(repo, nil)

	in, err := s.RecordManual(ctx, model.TypeEntry, ManualInput{Name: "Ira", EnrollmentNo: "EN7", Course: "B.E", Branch: "IT", Semester: "5"})
	require.NoError(t, err)
	_, err = s.RecordManual(ctx, model.TypeEntry, ManualInput{Name: "Other"})
	require.NoError(t, err)

	_, err = s.QuickExit(ctx, in.ID, false)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConfirmationRequired))
	assert.Equal(t, "Are you sure you want to mark Ira as exited?\n\nThis will record an exit entry with the same details.", apperr.As(err, "").Message)
	all, _ := repo.ListEntries(ctx)
	assert.Len(t, all, 2, "unconfirmed quick exit records nothing")

	out, err := s.QuickExit(ctx, in.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.TypeExit, out.Type)
	assert.NotEqual(t, in.ID, out.ID)
	assert.Equal(t, []string{in.PersonName, in.EnrollmentNo, in.Course, in.Branch, in.Semester},
		[]string{out.PersonName, out.EnrollmentNo, out.Course, out.Branch, out.Semester})

	act, err := s.Activity(ctx, filter.EntryQuery{})
	require.NoError(t, err)
	assert.Equal(t, out.ID, act.Entries[0].ID)

	_, err = s.QuickExit(ctx, out.ID, true)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument), "exit records cannot be exited again")

	_, err = s.QuickExit(ctx, "missing", true)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestActivityCapsAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestService(store.NewMemory(), nil)
	for i := 0; i < 14; i++ {
		typ := model.TypeEntry
		if i%2 == 1 {
			typ = model.TypeExit
		}
		_, err := s.RecordManual(ctx, typ, ManualInput{Name: fmt.Sprintf("Student %02d", i), Course: "BSc"})
		require.NoError(t, err)
	}

	act, err := s.Activity(ctx, filter.EntryQuery{})
	require.NoError(t, err)
	assert.Len(t, act.Entries, ActivityLimit)
	assert.Equal(t, 14, act.Matched)
	assert.Equal(t, 14, act.Total)
	assert.Equal(t, "Student 13", act.Entries[0].PersonName)

	act, err = s.Activity(ctx, filter.EntryQuery{Type: "exit", Criteria: filter.Criteria{Search: "student 1"}})
	require.NoError(t, err)
	// exits among 10..13 are 11 and 13
	assert.Equal(t, 2, act.Matched)

	act, err = s.Activity(ctx, filter.EntryQuery{Criteria: filter.Criteria{Course: "MSc"}})
	require.NoError(t, err)
	assert.Empty(t, act.Entries)
	assert.NotNil(t, act.Entries)
	assert.Equal(t, 14, act.Total)

	opts, err := s.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BSc"}, opts.Courses)
	assert.Equal(t, []string{model.NotAvailable}, opts.Branches)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	s := newTestService(repo, nil)

	old := model.Entry{ID: "old", Type: model.TypeExit, PersonName: "X", Date: "01/01/2020", Time: "10:00:00",
		Timestamp: time.Date(2020, 1, 1, 4, 30, 0, 0, time.UTC)}
	require.NoError(t, repo.AddEntry(ctx, old))
	_, err := s.RecordManual(ctx, model.TypeEntry, ManualInput{Name: "A"})
	require.NoError(t, err)
	_, err = s.RecordManual(ctx, model.TypeEntry, ManualInput{Name: "B"})
	require.NoError(t, err)
	_, err = s.RecordManual(ctx, model.TypeExit, ManualInput{Name: "A"})
	require.NoError(t, err)

	s.PersonAdded(model.Person{ID: "p1"})
	s.PersonAdded(model.Person{ID: "p2"})
	s.PersonRemoved("p1")
	s.PersonRemoved("unknown")

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TodayEntries: 2, TodayExits: 1, TotalEntries: 2, TotalExits: 2, TotalPeople: 1}, st)
}

func TestLoadAndPersonAdded(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.AddPerson(ctx, model.Person{ID: "p1", CreatedAt: time.Now()}))
	s := newTestService(repo, nil)

	require.NoError(t, s.Load(ctx))
	s.PersonAdded(model.Person{ID: "p2"})
	people := s.People()
	require.Len(t, people, 2)
	assert.Equal(t, "p2", people[0].ID)
}
