package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelDownloadReportsMonotonicProgress(t *testing.T) {
	payload := make([]byte, 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	model := NewModel(t.TempDir(), srv.URL, nil, nil)
	require.False(t, model.IsDownloaded())

	var fractions []float64
	err := model.Download(context.Background(), func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	require.True(t, model.IsDownloaded())

	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1], "progress went backwards")
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	// No stray partial file left behind.
	entries, err := os.ReadDir(model.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestModelDownloadAlreadyPresentIsNoop(t *testing.T) {
	dir := t.TempDir()
	placeModelFile(t, dir)
	model := NewModel(dir, "http://unreachable.invalid", nil, nil)

	var final float64
	err := model.Download(context.Background(), func(f float64) { final = f })
	require.NoError(t, err)
	assert.Equal(t, 1.0, final)
}

func TestModelConcurrentDownloadIsNoop(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.Write([]byte("weights"))
	}))
	defer srv.Close()

	model := NewModel(t.TempDir(), srv.URL, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- model.Download(context.Background(), nil)
	}()
	<-started

	// Second call while the first is in flight: guarded no-op, not an error.
	require.NoError(t, model.Download(context.Background(), nil))
	require.False(t, model.IsDownloaded())

	close(release)
	require.NoError(t, <-done)
	require.True(t, model.IsDownloaded())
}

func TestModelDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	model := NewModel(t.TempDir(), srv.URL, nil, nil)
	require.Error(t, model.Download(context.Background(), nil))
	assert.False(t, model.IsDownloaded())
}

func TestModelDownloadCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	model := NewModel(t.TempDir(), srv.URL, nil, nil)
	require.Error(t, model.Download(ctx, nil))
	assert.False(t, model.IsDownloaded(), "cancelled download must not leave a model file")
}

func TestModelDelete(t *testing.T) {
	dir := t.TempDir()
	placeModelFile(t, dir)
	model := NewModel(dir, "http://unused", nil, nil)

	require.NoError(t, model.Delete())
	assert.False(t, model.IsDownloaded())
	// Deleting an absent model is fine.
	require.NoError(t, model.Delete())
}

func TestModelTranscribeRequiresInferencer(t *testing.T) {
	dir := t.TempDir()
	placeModelFile(t, dir)
	model := NewModel(dir, "http://unused", nil, nil)

	_, err := model.Transcribe(context.Background(), "a.wav", nil)
	require.ErrorIs(t, err, ErrNoInferencer)
}
