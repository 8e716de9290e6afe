package eventstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oksasatya/cloudgames-users/internal/domain/event"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func created(id string) event.UserCreated {
	return event.UserCreated{UserID: id, Name: "n", Email: id + "@x.com", Role: "User", Occurred: time.Now().UTC()}
}

func TestMemoryStore_QueryUnknownSubject(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	_, err := s.Append(created("a"))
	require.NoError(t, err)

	got := s.Query("nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryStore_AppendAndQuery(t *testing.T) {
	s := NewMemoryStore(nil, nil)

	id1, err := s.Append(created("u1"))
	require.NoError(t, err)
	id2, err := s.Append(event.UserUpdated{UserID: "u1", Name: "n2", Email: "u1@x.com", Occurred: time.Now()})
	require.NoError(t, err)
	_, err = s.Append(created("u2"))
	require.NoError(t, err)
	id3, err := s.Append(event.UserLoggedIn{UserID: "u1", Email: "u1@x.com", Success: true, Occurred: time.Now()})
	require.NoError(t, err)

	recs := s.Query("u1")
	require.Len(t, recs, 3)
	assert.Equal(t, []string{id1, id2, id3}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
	assert.Equal(t, event.TypeUserCreated, recs[0].FactType)
	assert.Equal(t, event.TypeUserUpdated, recs[1].FactType)
	assert.Equal(t, event.TypeUserLoggedIn, recs[2].FactType)
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].StoredAt.Before(recs[i-1].StoredAt))
		assert.Greater(t, recs[i].Sequence, recs[i-1].Sequence)
		assert.Greater(t, recs[i].ID, recs[i-1].ID, "ulids sort in append order")
	}
	assert.Equal(t, 4, s.Len())

	// re-iterable: a second query yields the same records
	assert.Equal(t, recs, s.Query("u1"))
}

func TestMemoryStore_NoSubstringMatches(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	_, err := s.Append(created("12"))
	require.NoError(t, err)
	_, err = s.Append(created("123"))
	require.NoError(t, err)
	// "1" appears inside another subject's email and id
	_, err = s.Append(event.UserUpdated{UserID: "other", Name: "1", Email: "1@x.com"})
	require.NoError(t, err)

	assert.Len(t, s.Query("12"), 1)
	assert.Empty(t, s.Query("1"))
}

func TestMemoryStore_QueryReturnsCopies(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	_, err := s.Append(created("u1"))
	require.NoError(t, err)

	recs := s.Query("u1")
	recs[0].Payload[0] = 'X'
	recs[0].SubjectID = "mutated"

	again := s.Query("u1")
	assert.Equal(t, "u1", again[0].SubjectID)
	assert.Equal(t, byte('{'), again[0].Payload[0])
}

func TestMemoryStore_StoredAtNeverGoesBackwards(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Hour), base.Add(time.Second)}
	i := 0
	s.now = func() time.Time { t := clock[i]; i++; return t }

	for range 3 {
		_, err := s.Append(created("u1"))
		require.NoError(t, err)
	}
	recs := s.Query("u1")
	assert.Equal(t, base, recs[0].StoredAt)
	assert.Equal(t, base, recs[1].StoredAt)
	assert.Equal(t, base.Add(time.Second), recs[2].StoredAt)
}

func TestMemoryStore_SerializationFailure(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	s.marshal = func(any) ([]byte, error) { return nil, errors.New("boom") }

	id, err := s.Append(created("u1"))
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Empty(t, id)
	assert.Empty(t, s.Query("u1"), "no partial record is stored")
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_NilFact(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	_, err := s.Append(nil)
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	const writers, perWriter = 16, 50

	var wg sync.WaitGroup
	appended := make([][]string, writers)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject := fmt.Sprintf("user-%d", w)
			for range perWriter {
				id, err := s.Append(created(subject))
				if err != nil {
					t.Error(err)
					return
				}
				appended[w] = append(appended[w], id)
				// readers run alongside writers
				_ = s.Query(subject)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, s.Len())
	for w := range writers {
		recs := s.Query(fmt.Sprintf("user-%d", w))
		require.Len(t, recs, perWriter)
		for i, rec := range recs {
			assert.Equal(t, appended[w][i], rec.ID, "subject order matches append order")
		}
	}
}

func TestMemoryStore_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := NewMemoryStore(nil, m)
	_, err := s.Append(created("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FactsAppended.WithLabelValues("UserCreated")))
}

func TestAppend_PayloadRoundTrips(t *testing.T) {
	s := NewMemoryStore(nil, nil)
	want := event.UserLoggedIn{UserID: "u1", Email: "u1@x.com", Success: false, Occurred: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err := s.Append(want)
	require.NoError(t, err)

	rec := s.Query("u1")[0]
	require.Equal(t, event.TypeUserLoggedIn, rec.FactType)
	var got event.UserLoggedIn
	require.NoError(t, json.Unmarshal(rec.Payload, &got))
	assert.Equal(t, want, got)
}
