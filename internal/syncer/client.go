// Package syncer pushes locally stored records to the remote store and
// imports people registered elsewhere.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gatelog/internal/model"
)

// ErrNotConfigured is returned when no remote URL is set and Skip is off.
var ErrNotConfigured = errors.New("sync: remote url not configured")

// RemotePerson is the roster record as stored remotely.
type RemotePerson struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollmentNo"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Course       string `json:"course"`
	Branch       string `json:"branch"`
	Semester     string `json:"semester"`
	CreatedDate  string `json:"createdDate"`
	CreatedTime  string `json:"createdTime"`
	QRCodeURL    string `json:"qrCodeUrl,omitempty"`
}

// RemoteEntry is the activity record as stored remotely.
type RemoteEntry struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	PersonName   string `json:"personName"`
	EnrollmentNo string `json:"enrollmentNo"`
	Course       string `json:"course"`
	Branch       string `json:"branch"`
	Semester     string `json:"semester"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// ToRemotePerson renders p with its creation instant in loc.
func ToRemotePerson(p model.Person, loc *time.Location) RemotePerson {
	return RemotePerson{
		ID:           p.ID,
		Name:         p.Name,
		EnrollmentNo: p.EnrollmentNo,
		Email:        p.Email,
		Phone:        p.Phone,
		Course:       p.Course,
		Branch:       p.Branch,
		Semester:     p.Semester,
		CreatedDate:  model.LocalDate(p.CreatedAt, loc),
		CreatedTime:  model.LocalTime(p.CreatedAt, loc),
		QRCodeURL:    p.QRCodeURL,
	}
}

// ToRemoteEntry drops the local-only fields of e.
func ToRemoteEntry(e model.Entry) RemoteEntry {
	return RemoteEntry{
		ID:           e.ID,
		Type:         string(e.Type),
		PersonName:   e.PersonName,
		EnrollmentNo: e.EnrollmentNo,
		Course:       e.Course,
		Branch:       e.Branch,
		Semester:     e.Semester,
		Date:         e.Date,
		Time:         e.Time,
	}
}

// Client calls the remote store.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set every call succeeds without I/O.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetPeople lists the remote roster.
func (c *Client) GetPeople(ctx context.Context) ([]RemotePerson, error) {
	if c.Skip {
		return nil, nil
	}
	var out struct {
		People []RemotePerson `json:"people"`
	}
	if err := c.do(ctx, http.MethodGet, "/people", nil, &out); err != nil {
		return nil, err
	}
	return out.People, nil
}

// AddPerson pushes a roster record.
func (c *Client) AddPerson(ctx context.Context, p RemotePerson) error {
	if c.Skip {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/people", p, nil)
}

// AddEntry pushes an activity record.
func (c *Client) AddEntry(ctx context.Context, e RemoteEntry) error {
	if c.Skip {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/entries", e, nil)
}

// Health checks if the remote store is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.BaseURL == "" {
		return ErrNotConfigured
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sync %s %s: %s: %s", method, path, resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
