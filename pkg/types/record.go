package types

import (
	"fmt"
	"strings"
	"time"
)

// Record is the normalized description of one file as it moves through
// the ingestion pipeline. A record is either pending (carries Payload,
// no StoredPath) or persisted (StoredPath set, Payload dropped); the
// pipeline is the only component that performs that transition.
type Record struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OriginPath  string `json:"origin_path,omitempty"`
	StoredPath  string `json:"stored_path,omitempty"`
	Payload     string `json:"payload,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Pending reports whether the record has not been written to disk yet.
func (r *Record) Pending() bool {
	return r.StoredPath == ""
}

// Row is one catalog entry. Timestamps are set by the catalog itself
// on insert and update.
type Row struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OriginPath  string    `json:"origin_path,omitempty"`
	StoredPath  string    `json:"stored_path,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecordID derives a stable identifier from a display name. The
// sanitized name keeps the id readable; the timestamp keeps two drops
// of the same file name distinct.
func NewRecordID(name string, now time.Time) string {
	return fmt.Sprintf("%s_%d", sanitizeName(name), now.UnixNano())
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
