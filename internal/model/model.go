package model

import "time"

// EntryType tells whether a record is a check-in or a check-out.
type EntryType string

const (
	TypeEntry EntryType = "entry"
	TypeExit  EntryType = "exit"
)

// Valid reports whether t is one of the known record types.
func (t EntryType) Valid() bool {
	return t == TypeEntry || t == TypeExit
}

// Label is the capitalised form used in notices ("Entry", "Exit").
func (t EntryType) Label() string {
	if t == TypeExit {
		return "Exit"
	}
	return "Entry"
}

// SyncStatus marks whether a record was confirmed by the remote store.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// NotAvailable fills optional fields left blank on manual entry.
const NotAvailable = "N/A"

// Entry is a single entry/exit event.
type Entry struct {
	ID           string     `json:"id"`
	Type         EntryType  `json:"type"`
	PersonName   string     `json:"person_name"`
	EnrollmentNo string     `json:"enrollment_no"`
	Course       string     `json:"course"`
	Branch       string     `json:"branch"`
	Semester     string     `json:"semester"`
	Timestamp    time.Time  `json:"timestamp"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	SyncStatus   SyncStatus `json:"sync_status"`
}

// Person is a registered roster member.
type Person struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	EnrollmentNo string     `json:"enrollment_no"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Course       string     `json:"course"`
	Branch       string     `json:"branch"`
	Semester     string     `json:"semester"`
	CreatedAt    time.Time  `json:"created_at"`
	QRCodeData   string     `json:"qr_code_data,omitempty"`
	QRCodeURL    string     `json:"qr_code_url,omitempty"`
	SyncStatus   SyncStatus `json:"sync_status"`
}

// Station is a registered scanner station.
type Station struct {
	StationID    string    `json:"station_id"`
	RegisteredAt time.Time `json:"registered_at"`
}
