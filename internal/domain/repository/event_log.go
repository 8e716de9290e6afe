package repository

import (
	"encoding/json"
	"time"

	"github.com/oksasatya/cloudgames-users/internal/domain/event"
)

// StoredRecord is one appended fact as kept by the event log.
// The JSON tags are the audit wire shape.
type StoredRecord struct {
	ID        string          `json:"id"`
	Sequence  uint64          `json:"sequence"`
	SubjectID string          `json:"subjectId"`
	FactType  event.FactType  `json:"factType"`
	Payload   json.RawMessage `json:"payload"`
	StoredAt  time.Time       `json:"storedAt"`
}

// EventLog is the append-only audit trail of user facts.
type EventLog interface {
	// Append stores fact and returns the id assigned to its record.
	Append(fact event.Fact) (string, error)
	// Query returns the records of one subject in append order. An unknown
	// subject yields an empty slice.
	Query(subjectID string) []StoredRecord
}
