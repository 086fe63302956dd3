package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"gatelog/internal/model"
)

// SQLRepository persists people, entries and stations in Postgres or SQLite.
// Queries are written with '?' placeholders and rebound for Postgres.
type SQLRepository struct {
	db     *sql.DB
	dollar bool
}

// NewSQLRepository creates a repo on an open DB.
func NewSQLRepository(db *DB) *SQLRepository {
	return &SQLRepository{db: db.Client, dollar: db.Driver == DriverPostgres}
}

func (r *SQLRepository) q(query string) string {
	if !r.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const entryColumns = `id, type, person_name, enrollment_no, course, branch, semester, recorded_at, local_date, local_time, sync_status`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (model.Entry, error) {
	var e model.Entry
	var typ, status string
	if err := s.Scan(&e.ID, &typ, &e.PersonName, &e.EnrollmentNo, &e.Course, &e.Branch, &e.Semester, &e.Timestamp, &e.Date, &e.Time, &status); err != nil {
		return model.Entry{}, err
	}
	e.Type = model.EntryType(typ)
	e.SyncStatus = model.SyncStatus(status)
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

// AddEntry writes a new entry.
func (r *SQLRepository) AddEntry(ctx context.Context, e model.Entry) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`), e.ID, string(e.Type), e.PersonName, e.EnrollmentNo, e.Course, e.Branch, e.Semester, e.Timestamp.UTC(), e.Date, e.Time, string(e.SyncStatus))
	return err
}

// GetEntry returns a single entry by id.
func (r *SQLRepository) GetEntry(ctx context.Context, id string) (model.Entry, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+entryColumns+` FROM entries WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, ErrNotFound
	}
	return e, err
}

// ListEntries returns every entry, newest first.
func (r *SQLRepository) ListEntries(ctx context.Context) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY recorded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// SetEntrySyncStatus updates the sync marker of an entry.
func (r *SQLRepository) SetEntrySyncStatus(ctx context.Context, id string, status model.SyncStatus) error {
	return r.execOne(ctx, `UPDATE entries SET sync_status = ? WHERE id = ?`, string(status), id)
}

const personColumns = `id, name, enrollment_no, email, phone, course, branch, semester, created_at, qr_code_data, qr_code_url, sync_status`

func scanPerson(s scanner) (model.Person, error) {
	var p model.Person
	var status string
	if err := s.Scan(&p.ID, &p.Name, &p.EnrollmentNo, &p.Email, &p.Phone, &p.Course, &p.Branch, &p.Semester, &p.CreatedAt, &p.QRCodeData, &p.QRCodeURL, &status); err != nil {
		return model.Person{}, err
	}
	p.SyncStatus = model.SyncStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// AddPerson writes a new person.
func (r *SQLRepository) AddPerson(ctx context.Context, p model.Person) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO people (`+personColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`), p.ID, p.Name, p.EnrollmentNo, p.Email, p.Phone, p.Course, p.Branch, p.Semester, p.CreatedAt.UTC(), p.QRCodeData, p.QRCodeURL, string(p.SyncStatus))
	return err
}

// GetPerson returns a single person by id.
func (r *SQLRepository) GetPerson(ctx context.Context, id string) (model.Person, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+personColumns+` FROM people WHERE id = ?`), id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Person{}, ErrNotFound
	}
	return p, err
}

// ListPeople returns the roster, newest first.
func (r *SQLRepository) ListPeople(ctx context.Context) ([]model.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// DeletePerson removes a person from the local store and records the id in
// deleted_people.
func (r *SQLRepository) DeletePerson(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM people WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, r.q(`
		INSERT INTO deleted_people (id, deleted_at)
		VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`), id, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// PersonDeleted reports whether id was deleted locally.
func (r *SQLRepository) PersonDeleted(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM deleted_people WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetPersonSyncStatus updates the sync marker of a person.
func (r *SQLRepository) SetPersonSyncStatus(ctx context.Context, id string, status model.SyncStatus) error {
	return r.execOne(ctx, `UPDATE people SET sync_status = ? WHERE id = ?`, string(status), id)
}

// SetPersonQRCodeURL records where the QR image is hosted.
func (r *SQLRepository) SetPersonQRCodeURL(ctx context.Context, id, url string) error {
	return r.execOne(ctx, `UPDATE people SET qr_code_url = ? WHERE id = ?`, url, id)
}

// SyncCounts tallies entries and people per sync status.
func (r *SQLRepository) SyncCounts(ctx context.Context) (SyncCounts, error) {
	out := newSyncCounts()
	for table, dst := range map[string]map[model.SyncStatus]int{"entries": out.Entries, "people": out.People} {
		rows, err := r.db.QueryContext(ctx, `SELECT sync_status, COUNT(*) FROM `+table+` GROUP BY sync_status`)
		if err != nil {
			return SyncCounts{}, err
		}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return SyncCounts{}, err
			}
			dst[model.SyncStatus(status)] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return SyncCounts{}, err
		}
	}
	return out, nil
}

// UpsertStation ensures a station record exists.
func (r *SQLRepository) UpsertStation(ctx context.Context, stationID string) error {
	if stationID == "" {
		return errors.New("station id required")
	}
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO stations (station_id, registered_at)
		VALUES (?, ?)
		ON CONFLICT (station_id) DO NOTHING
	`), stationID, time.Now().UTC())
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *SQLRepository) SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO refresh_tokens (token, station_id, expires_at)
		VALUES (?, ?, ?)
	`), token, stationID, expiresAt.UTC())
	return err
}

// ConsumeRefreshToken revokes a live refresh token and returns its station.
func (r *SQLRepository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error) {
	var stationID string
	var expiresAt time.Time
	var revoked bool
	err := r.db.QueryRowContext(ctx, r.q(`SELECT station_id, expires_at, revoked FROM refresh_tokens WHERE token = ?`), token).
		Scan(&stationID, &expiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if revoked || !expiresAt.After(now) {
		return "", ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND revoked = FALSE`), token)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	return stationID, nil
}

func (r *SQLRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.q(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
