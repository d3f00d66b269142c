package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// OnlineEngine posts audio to the cloud speech endpoint. It satisfies
// Recognizer and also drives live (chunked) transcription sessions.
type OnlineEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewOnlineEngine(endpoint, apiKey string, timeout time.Duration) *OnlineEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OnlineEngine{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type transcriptResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file and returns the recognized text.
func (o *OnlineEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAudioConversion, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognizerUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrPermissionDenied
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return "", ErrRecognizerUnavailable
	default:
		return "", fmt.Errorf("transcribe: speech endpoint returned %d", resp.StatusCode)
	}

	var tr transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	return tr.Text, nil
}

// LiveSession streams microphone chunks to the online engine and invokes the
// partial callback as recognized text grows. One session per capture.
type LiveSession struct {
	engine    *OnlineEngine
	onPartial func(string)

	mu      sync.Mutex
	chunks  [][]byte
	partial string
	stopped bool
}

// StartLive opens a live transcription session. Chunks are pushed by the
// audio capture collaborator; Stop returns the final transcript.
func (o *OnlineEngine) StartLive(onPartial func(string)) *LiveSession {
	return &LiveSession{engine: o, onPartial: onPartial}
}

// Push submits the next audio chunk and refreshes the partial transcript.
func (s *LiveSession) Push(ctx context.Context, chunk []byte) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("transcribe: session already stopped")
	}
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	joined := bytes.Join(s.chunks, nil)
	s.mu.Unlock()

	text, err := s.engine.transcribeBytes(ctx, joined)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.partial = text
	cb := s.onPartial
	s.mu.Unlock()
	if cb != nil {
		cb(text)
	}
	return nil
}

// Stop closes the session and returns the last recognized transcript.
func (s *LiveSession) Stop() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Result{Method: MethodNone}, fmt.Errorf("transcribe: session already stopped")
	}
	s.stopped = true
	s.chunks = nil
	if s.partial == "" {
		return Result{Method: MethodNone}, ErrEmptyTranscript
	}
	return Result{Text: s.partial, Method: MethodOnline}, nil
}

func (o *OnlineEngine) transcribeBytes(ctx context.Context, audio []byte) (string, error) {
	tmp, err := os.CreateTemp("", "live-*.raw")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return o.Transcribe(ctx, tmp.Name())
}
