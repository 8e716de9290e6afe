// Package eventstore keeps the process-lifetime audit log of user facts.
package eventstore

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/internal/domain/event"
	"github.com/oksasatya/cloudgames-users/internal/domain/repository"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

// ErrSerialization is returned when a fact cannot be encoded. Nothing is stored.
var ErrSerialization = errors.New("event serialization failed")

// MemoryStore is an in-memory, append-only event log indexed by subject id.
// Records are never mutated or removed; the store grows for the life of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	records   []repository.StoredRecord
	bySubject map[string][]int
	lastAt    time.Time
	entropy   io.Reader

	now     func() time.Time
	marshal func(v any) ([]byte, error)
	logger  *logrus.Logger
	metrics *metrics.Collectors
}

// NewMemoryStore creates an empty log. logger and m may be nil.
func NewMemoryStore(logger *logrus.Logger, m *metrics.Collectors) *MemoryStore {
	return &MemoryStore{
		bySubject: make(map[string][]int),
		entropy:   ulid.Monotonic(rand.Reader, 0),
		now:       func() time.Time { return time.Now().UTC() },
		marshal:   json.Marshal,
		logger:    logger,
		metrics:   m,
	}
}

// Append serializes fact and stores it under the next position of the log.
func (s *MemoryStore) Append(fact event.Fact) (string, error) {
	payload, err := s.encode(fact)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	at := s.now()
	// keep storedAt non-decreasing so ascending storedAt is append order
	if at.Before(s.lastAt) {
		at = s.lastAt
	}
	s.lastAt = at
	id, err := ulid.New(ulid.Timestamp(at), s.entropy)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("assign record id: %w", err)
	}
	rec := repository.StoredRecord{
		ID:        id.String(),
		Sequence:  uint64(len(s.records)) + 1,
		SubjectID: fact.SubjectID(),
		FactType:  fact.Type(),
		Payload:   payload,
		StoredAt:  at,
	}
	s.records = append(s.records, rec)
	s.bySubject[rec.SubjectID] = append(s.bySubject[rec.SubjectID], len(s.records)-1)
	s.mu.Unlock()

	s.metrics.FactAppended(string(rec.FactType))
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"record_id":  rec.ID,
			"subject_id": rec.SubjectID,
			"fact_type":  rec.FactType,
		}).Debug("event appended")
	}
	return rec.ID, nil
}

// Query returns a copy of the subject's records in append order.
func (s *MemoryStore) Query(subjectID string) []repository.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.bySubject[subjectID]
	out := make([]repository.StoredRecord, 0, len(idx))
	for _, i := range idx {
		rec := s.records[i]
		rec.Payload = bytes.Clone(rec.Payload)
		out = append(out, rec)
	}
	return out
}

// Len returns the number of records in the log.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) encode(fact event.Fact) ([]byte, error) {
	var v any
	switch f := fact.(type) {
	case event.UserCreated:
		v = f
	case event.UserUpdated:
		v = f
	case event.UserLoggedIn:
		v = f
	default:
		return nil, fmt.Errorf("%w: unsupported fact %T", ErrSerialization, fact)
	}
	b, err := s.marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return b, nil
}

var _ repository.EventLog = (*MemoryStore)(nil)
