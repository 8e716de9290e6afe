package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func fakeES(t *testing.T, status int, reply string) (*elasticsearch.Client, func() []recorded) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := recorded{method: r.Method, path: r.URL.Path}
		_ = json.Unmarshal(raw, &rec.body)
		mu.Lock()
		got = append(got, rec)
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), got...)
	}
}

func TestUserIndex_Index(t *testing.T) {
	es, calls := fakeES(t, http.StatusCreated, `{"result":"created"}`)
	u, err := entity.Reconstitute("u1", "Ana", "ana@x.com", "secret-hash", entity.RoleUser, time.Now().UTC(), nil)
	require.NoError(t, err)

	require.NoError(t, NewUserIndex(es, "users").Index(context.Background(), u))

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/users/_doc/u1", got[0].path)
	assert.Equal(t, "Ana", got[0].body["name"])
	assert.Equal(t, "ana@x.com", got[0].body["email"])
	assert.NotContains(t, got[0].body, "password_hash")
	assert.NotContains(t, got[0].body, "updated_at")
}

func TestUserIndex_IndexError(t *testing.T) {
	es, _ := fakeES(t, http.StatusInternalServerError, `{"error":"boom"}`)
	u, err := entity.Reconstitute("u1", "Ana", "ana@x.com", "h", entity.RoleUser, time.Now().UTC(), nil)
	require.NoError(t, err)

	err = NewUserIndex(es, "users").Index(context.Background(), u)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "500"))
}

func TestUserIndex_Search(t *testing.T) {
	es, calls := fakeES(t, http.StatusOK, `{"hits":{"hits":[{"_id":"u2"},{"_id":"u1"}]}}`)

	ids, err := NewUserIndex(es, "users").Search(context.Background(), "ana", 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, ids)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, "/users/_search", got[0].path)
	assert.EqualValues(t, defaultSize, got[0].body["size"])
	mm := got[0].body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "ana", mm["query"])
}

func TestUserIndex_SearchError(t *testing.T) {
	es, _ := fakeES(t, http.StatusBadRequest, `{"error":"bad query"}`)

	_, err := NewUserIndex(es, "users").Search(context.Background(), "ana", 5)
	assert.Error(t, err)
}
