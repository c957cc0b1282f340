package domain

import (
	"time"
)

// LeadRecord is the immutable snapshot of a completed lead, produced once
// per session when all required fields have validated values. The core hands
// it to the dispatcher and the archive and then forgets it.
type LeadRecord struct {
	LeadID    string            `json:"lead_id"`
	ClientID  string            `json:"client_id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

// Field returns the collected value for name, or "" if absent.
func (l *LeadRecord) Field(name string) string {
	return l.Fields[name]
}
