package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake-audio"), 0o600))
	return path
}

func speechServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("audio")
		require.NoError(t, err)
		json.NewEncoder(w).Encode(transcriptResponse{Text: text})
	}))
}

func TestOnlineTranscribe(t *testing.T) {
	srv := speechServer(t, http.StatusOK, "it was tuesday evening")
	defer srv.Close()

	eng := NewOnlineEngine(srv.URL, "test-key", 0)
	text, err := eng.Transcribe(context.Background(), writeAudioFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "it was tuesday evening", text)
}

func TestOnlineTranscribeErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrPermissionDenied},
		{http.StatusUnauthorized, ErrPermissionDenied},
		{http.StatusServiceUnavailable, ErrRecognizerUnavailable},
	}
	for _, tc := range cases {
		srv := speechServer(t, tc.status, "")
		eng := NewOnlineEngine(srv.URL, "", 0)
		_, err := eng.Transcribe(context.Background(), writeAudioFixture(t))
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestOnlineTranscribeMissingFile(t *testing.T) {
	eng := NewOnlineEngine("http://unused.invalid", "", 0)
	_, err := eng.Transcribe(context.Background(), "/does/not/exist.wav")
	require.ErrorIs(t, err, ErrAudioConversion)
}

func TestLiveSessionPartialsAndStop(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		text := "partial"
		if calls > 1 {
			text = "partial then final"
		}
		json.NewEncoder(w).Encode(transcriptResponse{Text: text})
	}))
	defer srv.Close()

	var partials []string
	sess := NewOnlineEngine(srv.URL, "", 0).StartLive(func(p string) {
		partials = append(partials, p)
	})

	require.NoError(t, sess.Push(context.Background(), []byte("chunk-1")))
	require.NoError(t, sess.Push(context.Background(), []byte("chunk-2")))
	assert.Equal(t, []string{"partial", "partial then final"}, partials)

	res, err := sess.Stop()
	require.NoError(t, err)
	assert.Equal(t, "partial then final", res.Text)
	assert.Equal(t, MethodOnline, res.Method)

	// A stopped session rejects further pushes and a second stop.
	require.Error(t, sess.Push(context.Background(), []byte("late")))
	_, err = sess.Stop()
	require.Error(t, err)
}

func TestLiveSessionStopWithoutSpeech(t *testing.T) {
	sess := NewOnlineEngine("http://unused.invalid", "", 0).StartLive(nil)
	_, err := sess.Stop()
	require.ErrorIs(t, err, ErrEmptyTranscript)
}
