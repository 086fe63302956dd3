package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gatelog/internal/badge"
	"gatelog/internal/cloudinary"
	"gatelog/internal/metrics"
	"gatelog/internal/model"
	"gatelog/internal/queue"
	"gatelog/internal/store"
)

// Uploader hosts QR images.
type Uploader interface {
	UploadBase64(ctx context.Context, data, publicID string) (*cloudinary.UploadResult, error)
}

// Worker drains the sync queue into the remote store. A failed push marks the
// record failed; it is not retried.
type Worker struct {
	repo     store.Repository
	remote   *Client
	loc      *time.Location
	uploader Uploader
	presence *Presence
	online   atomic.Bool

	// PullInterval spaces remote imports and health probes.
	PullInterval time.Duration
}

// NewWorker creates a worker.
func NewWorker(repo store.Repository, remote *Client, loc *time.Location) *Worker {
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{repo: repo, remote: remote, loc: loc, PullInterval: time.Minute}
}

// UseUploader enables QR image hosting.
func (w *Worker) UseUploader(u Uploader) { w.uploader = u }

// UsePresence publishes connectivity through redis.
func (w *Worker) UsePresence(p *Presence) { w.presence = p }

// Online reports the result of the last health probe.
func (w *Worker) Online(context.Context) bool { return w.online.Load() }

// Process pushes the record named by msg.
func (w *Worker) Process(ctx context.Context, msg queue.Message) error {
	id := string(msg.Body)
	switch msg.Type {
	case queue.TypeEntry:
		return w.pushEntry(ctx, id)
	case queue.TypePerson:
		return w.pushPerson(ctx, id)
	default:
		return fmt.Errorf("sync: unknown message type %q", msg.Type)
	}
}

func (w *Worker) pushEntry(ctx context.Context, id string) error {
	e, err := w.repo.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("sync: load entry %s: %w", id, err)
	}
	if err := w.remote.AddEntry(ctx, ToRemoteEntry(e)); err != nil {
		metrics.SyncTotal.WithLabelValues(queue.TypeEntry, string(model.SyncFailed)).Inc()
		_ = w.repo.SetEntrySyncStatus(ctx, id, model.SyncFailed)
		return fmt.Errorf("sync: push entry %s: %w", id, err)
	}
	metrics.SyncTotal.WithLabelValues(queue.TypeEntry, string(model.SyncSynced)).Inc()
	return w.repo.SetEntrySyncStatus(ctx, id, model.SyncSynced)
}

func (w *Worker) pushPerson(ctx context.Context, id string) error {
	p, err := w.repo.GetPerson(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		// removed locally before it was synced
		log.Printf("sync: person %s no longer stored, skipping", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync: load person %s: %w", id, err)
	}

	if w.uploader != nil && p.QRCodeURL == "" && p.QRCodeData != "" {
		res, err := w.uploader.UploadBase64(ctx, p.QRCodeData, p.ID)
		if err != nil {
			log.Printf("sync: upload qr for %s: %v", id, err)
		} else if err := w.repo.SetPersonQRCodeURL(ctx, id, res.SecureURL); err == nil {
			p.QRCodeURL = res.SecureURL
		}
	}

	if err := w.remote.AddPerson(ctx, ToRemotePerson(p, w.loc)); err != nil {
		metrics.SyncTotal.WithLabelValues(queue.TypePerson, string(model.SyncFailed)).Inc()
		_ = w.repo.SetPersonSyncStatus(ctx, id, model.SyncFailed)
		return fmt.Errorf("sync: push person %s: %w", id, err)
	}
	metrics.SyncTotal.WithLabelValues(queue.TypePerson, string(model.SyncSynced)).Inc()
	return w.repo.SetPersonSyncStatus(ctx, id, model.SyncSynced)
}

// Pull imports remote people that are not stored locally and returns them.
// People deleted locally stay deleted. Their QR credential is rebuilt from
// the remote record.
func (w *Worker) Pull(ctx context.Context) ([]model.Person, error) {
	remote, err := w.remote.GetPeople(ctx)
	if err != nil {
		return nil, err
	}
	var added []model.Person
	for _, rp := range remote {
		if rp.ID == "" {
			continue
		}
		_, err := w.repo.GetPerson(ctx, rp.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return added, err
		}
		deleted, err := w.repo.PersonDeleted(ctx, rp.ID)
		if err != nil {
			return added, err
		}
		if deleted {
			continue
		}
		p, err := w.fromRemote(rp)
		if err != nil {
			log.Printf("sync: import person %s: %v", rp.ID, err)
			continue
		}
		if err := w.repo.AddPerson(ctx, p); err != nil {
			return added, fmt.Errorf("sync: store imported person %s: %w", rp.ID, err)
		}
		added = append(added, p)
	}
	return added, nil
}

func (w *Worker) fromRemote(rp RemotePerson) (model.Person, error) {
	created, err := model.ParseLocal(rp.CreatedDate, rp.CreatedTime, w.loc)
	if err != nil {
		created = time.Now().UTC()
	}
	png, err := badge.Encode(badge.Payload{
		ID:           rp.ID,
		Name:         rp.Name,
		EnrollmentNo: rp.EnrollmentNo,
		Course:       rp.Course,
		Branch:       rp.Branch,
		Semester:     rp.Semester,
		Date:         rp.CreatedDate,
		Time:         rp.CreatedTime,
	})
	if err != nil {
		return model.Person{}, err
	}
	return model.Person{
		ID:           rp.ID,
		Name:         rp.Name,
		EnrollmentNo: rp.EnrollmentNo,
		Email:        rp.Email,
		Phone:        rp.Phone,
		Course:       rp.Course,
		Branch:       rp.Branch,
		Semester:     rp.Semester,
		CreatedAt:    created,
		QRCodeData:   badge.DataURL(png),
		QRCodeURL:    rp.QRCodeURL,
		SyncStatus:   model.SyncSynced,
	}, nil
}

// Probe checks the remote store and refreshes the presence marker.
func (w *Worker) Probe(ctx context.Context) bool {
	err := w.remote.Health(ctx)
	ok := err == nil
	if w.online.Swap(ok) != ok {
		if ok {
			log.Println("sync: remote store reachable")
		} else {
			log.Printf("sync: remote store unreachable: %v", err)
		}
	}
	if ok && w.presence != nil {
		if err := w.presence.Beat(ctx); err != nil {
			log.Printf("sync: presence beat: %v", err)
		}
	}
	return ok
}

// Run consumes q until ctx is done. onImport, when set, receives people
// pulled from the remote store.
func (w *Worker) Run(ctx context.Context, q queue.Queue, onImport func(model.Person)) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("sync: consume: %w", err)
	}

	interval := w.PullInterval
	if interval <= 0 {
		interval = time.Minute
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	refresh := func() {
		if !w.Probe(ctx) {
			return
		}
		added, err := w.Pull(ctx)
		if err != nil {
			log.Printf("sync: pull people: %v", err)
		}
		if len(added) > 0 {
			log.Printf("sync: imported %d people", len(added))
		}
		if onImport != nil {
			for _, p := range added {
				onImport(p)
			}
		}
	}
	refresh()

	log.Println("sync worker started, waiting for messages...")
	for {
		select {
		case <-ctx.Done():
			log.Println("sync worker stopped")
			return nil
		case <-tick.C:
			refresh()
		case msg, ok := <-messages:
			if !ok {
				log.Println("sync worker stopped")
				return nil
			}
			if err := w.Process(ctx, msg); err != nil {
				log.Printf("%v", err)
				continue
			}
			log.Printf("sync: %s %s synced", msg.Type, string(msg.Body))
		}
	}
}
