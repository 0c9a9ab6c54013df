package supa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPeopleDecodesRows(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"p1","owner":"u1","label":"Alice","note":null,"routine_days":14,"created_at":"2025-01-01T00:00:00Z"},
			{"id":"p2","owner":"u1","label":"Bob","note":"work","routine_days":null,"created_at":"2025-01-02T00:00:00Z"}
		]`))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "test-key", DefaultBreakerSettings(), zerolog.Nop())
	require.NoError(t, err)

	people, err := s.ListPeople(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, people, 2)

	assert.Equal(t, "/rest/v1/people", gotPath)
	assert.Contains(t, gotQuery, "owner=eq.u1")

	assert.Equal(t, "Alice", people[0].Label)
	assert.Equal(t, "u1", people[0].OwnerID)
	require.NotNil(t, people[0].RoutineDays)
	assert.Equal(t, 14, *people[0].RoutineDays)
	assert.Equal(t, "", people[0].Note)

	assert.Nil(t, people[1].RoutineDays)
	assert.Equal(t, "work", people[1].Note)
}

func TestBreakerOpensOnUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	bs := DefaultBreakerSettings()
	s, err := New(url, "test-key", bs, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := uint32(0); i < bs.MinRequests; i++ {
		_, err := s.ListPeople(ctx, "u1")
		require.Error(t, err)
	}

	_, err = s.ListPeople(ctx, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "want open breaker, got %v", err)
	assert.Equal(t, "open", s.State())
}

func TestCanceledContextSkipsBackend(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "test-key", DefaultBreakerSettings(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.ListPeople(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDescribe(t *testing.T) {
	s, err := New("https://example.supabase.co", "k", DefaultBreakerSettings(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "supabase:https://example.supabase.co", s.Describe())
}
