package roster

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"regexp"
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
	msgs []queue.Message
}

func (r *recorder) Publish(_ context.Context, msg queue.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

type brokenRepo struct {
	store.Repository
}

func (brokenRepo) AddPerson(context.Context, model.Person) error { return errors.New("locked") }

func validInput() Input {
	return Input{
		Name:         " Anika Rao ",
		EnrollmentNo: "EN2024001",
		Email:        "anika@campus.test",
		Phone:        "+91 90000 00000",
		Course:       "B.E",
		Branch:       "Computer Engineering",
		Semester:     "3",
	}
}

func newTestService(repo store.Repository, pub Publisher) *Service {
	s := NewService(repo, pub, time.UTC)
	s.now = func() time.Time { return time.Date(2024, 7, 1, 8, 15, 30, 0, time.UTC) }
	return s
}

func TestAddPerson(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	pub := &recorder{}
	s := newTestService(repo, pub)
	var got []model.Person
	s.OnPersonAdded(func(p model.Person) { got = append(got, p) })

	p, err := s.AddPerson(ctx, validInput())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^person_1719821730000_[0-9a-z]{9}$`), p.ID)
	assert.Equal(t, "Anika Rao", p.Name)
	assert.Equal(t, model.SyncPending, p.SyncStatus)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Equal(t, []queue.Message{queue.Person(p.ID)}, pub.msgs)

	stored, err := repo.ListPeople(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	raw, err := badge.DecodeDataURL(stored[0].QRCodeData)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, badge.Width, img.Bounds().Dx())
}

func TestAddPersonValidationOrder(t *testing.T) {
	cases := []struct {
		blank func(*Input)
		field string
		msg   string
	}{
		{func(in *Input) { *in = Input{} }, "name", "Please enter a name"},
		{func(in *Input) { in.EnrollmentNo = " "; in.Email = "" }, "enrollment_no", "Please enter an enrollment number"},
		{func(in *Input) { in.Course = ""; in.Phone = "" }, "course", "Please select a course"},
		{func(in *Input) { in.Branch = "" }, "branch", "Please select a branch"},
		{func(in *Input) { in.Semester = "" }, "semester", "Please select a semester"},
		{func(in *Input) { in.Email = "\t" }, "email", "Please enter an email address"},
		{func(in *Input) { in.Phone = "" }, "phone", "Please enter a phone number"},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			repo := store.NewMemory()
			pub := &recorder{}
			s := newTestService(repo, pub)
			calls := 0
			s.OnPersonAdded(func(model.Person) { calls++ })

			in := validInput()
			tc.blank(&in)
			_, err := s.AddPerson(context.Background(), in)
			require.Error(t, err)
			ae := apperr.As(err, "")
			assert.Equal(t, tc.field, ae.Field)
			assert.Equal(t, tc.msg, ae.Message)

			people, _ := repo.ListPeople(context.Background())
			assert.Empty(t, people)
			assert.Zero(t, calls)
			assert.Empty(t, pub.msgs)
		})
	}
}

func TestAddPersonStoreFailure(t *testing.T) {
	s := newTestService(brokenRepo{store.NewMemory()}, nil)
	calls := 0
	s.OnPersonAdded(func(model.Person) { calls++ })

	_, err := s.AddPerson(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, "Failed to add person", apperr.As(err, "").Message)
	assert.Zero(t, calls)
}

func TestAddPersonWithFullQueue(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	s := newTestService(repo, queue.NewInMemory(1))
	calls := 0
	s.OnPersonAdded(func(model.Person) { calls++ })

	_, err := s.AddPerson(ctx, validInput())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.AddPerson(ctx, validInput())
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("AddPerson waited on the sync queue")
	}

	assert.Equal(t, 2, calls)
	people, err := repo.ListPeople(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 2)
}

func TestDeletePersonIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	pub := &recorder{}
	s := newTestService(repo, pub)
	var removed []string
	s.OnPersonDeleted(func(id string) { removed = append(removed, id) })

	p, err := s.AddPerson(ctx, validInput())
	require.NoError(t, err)
	pub.msgs = nil
	s.ToggleQR(p.ID)

	gone, err := s.DeletePerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anika Rao", gone.Name)
	assert.Empty(t, pub.msgs, "delete never reaches the remote store")
	assert.Equal(t, []string{p.ID}, removed)
	assert.False(t, s.QRVisible(p.ID))

	_, err = s.DeletePerson(ctx, p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestToggleQR(t *testing.T) {
	s := newTestService(store.NewMemory(), nil)
	assert.False(t, s.QRVisible("p"))
	assert.True(t, s.ToggleQR("p"))
	assert.True(t, s.QRVisible("p"))
	assert.False(t, s.ToggleQR("p"))
	assert.False(t, s.QRVisible("p"))
}

func TestDownloadQR(t *testing.T) {
	ctx := context.Background()
	s := newTestService(store.NewMemory(), nil)
	in := validInput()
	in.Name = "Dev  Kumar\tSingh"
	p, err := s.AddPerson(ctx, in)
	require.NoError(t, err)

	data, name, err := s.DownloadQR(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dev_Kumar_Singh_qr_code.png", name)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, _, err = s.DownloadQR(ctx, "nobody")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestListAndOptions(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	s := NewService(repo, nil, time.UTC)

	a := validInput()
	_, err := s.AddPerson(ctx, a)
	require.NoError(t, err)
	b := validInput()
	b.Name, b.Email, b.Course, b.Semester = "Zoya", "zoya@uni.test", "MSc", "1"
	_, err = s.AddPerson(ctx, b)
	require.NoError(t, err)

	all, err := s.List(ctx, filter.Criteria{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byEmail, err := s.List(ctx, filter.Criteria{Search: "  UNI.TEST "})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Zoya", byEmail[0].Name)

	none, err := s.List(ctx, filter.Criteria{Course: "Visitor"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	opts, err := s.FilterOptions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B.E", "MSc"}, opts.Courses)
	assert.Equal(t, []string{"Computer Engineering"}, opts.Branches)
}
