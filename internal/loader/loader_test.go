package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_specs":2,"index":[{"id":"A","status":"completed"},{"id":"B"}]}`))
	}))
	defer srv.Close()

	idx, err := New(srv.Client()).Index(context.Background(), srv.URL+"/search-index.json")
	require.NoError(t, err)

	require.Len(t, idx.Records, 2)
	assert.Equal(t, 2, idx.Total())
	assert.EqualValues(t, "completed", idx.Records[0].Status)
	assert.EqualValues(t, "draft", idx.Records[1].Status, "defaults applied at load time")
}

func TestIndexMissingFieldIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_specs":0}`))
	}))
	defer srv.Close()

	idx, err := New(nil).Index(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotNil(t, idx.Records)
	assert.Empty(t, idx.Records)
}

func TestNonSuccessStatusIsLoadError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(nil).Timeline(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, http.StatusNotFound, loadErr.Status)
	assert.Equal(t, 1, calls, "no retry")
}

func TestMalformedJSONIsLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"events": [`), 0o644))

	_, err := New(nil).Timeline(context.Background(), path)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestTimelineFromFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"events":[{"type":"commit","spec_id":"A","date":"2024-01-01","hash":"abc"}]}`), 0o644))

	tl, err := New(nil).Timeline(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.Len(t, tl.Events, 1)
	assert.Equal(t, "abc", tl.Events[0].Hash)
}

func TestMissingFileIsLoadError(t *testing.T) {
	_, err := New(nil).Index(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
