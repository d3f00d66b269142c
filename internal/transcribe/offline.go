package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const modelFileName = "speech-model.bin"

// Inferencer is the offline neural speech model's inference entry point, an
// external black box (native binding or subprocess). It receives the model
// file and the audio file and reports fractional progress.
type Inferencer interface {
	Transcribe(ctx context.Context, modelPath, audioPath string, onProgress func(float64)) (string, error)
}

// Model manages the offline speech model's on-disk lifecycle: download with
// progress, presence check, deletion, and inference dispatch.
type Model struct {
	dir    string
	url    string
	client *http.Client
	infer  Inferencer
	logger *log.Logger

	mu          sync.Mutex
	downloading bool
}

func NewModel(dir, url string, infer Inferencer, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}
	return &Model{
		dir:    dir,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Minute},
		infer:  infer,
		logger: logger,
	}
}

func (m *Model) path() string { return filepath.Join(m.dir, modelFileName) }

// IsDownloaded reports whether the model file is present locally. A nil
// Model reads as not downloaded, so deployments without an offline model
// route straight to the online engine.
func (m *Model) IsDownloaded() bool {
	if m == nil {
		return false
	}
	info, err := os.Stat(m.path())
	return err == nil && info.Size() > 0
}

// Download fetches the model to a partial file and renames it into place.
// A second call while one is in flight is a no-op, not an error. onProgress
// receives monotonic fractions 0.0 through 1.0.
func (m *Model) Download(ctx context.Context, onProgress func(float64)) error {
	m.mu.Lock()
	if m.downloading {
		m.mu.Unlock()
		return nil
	}
	m.downloading = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.downloading = false
		m.mu.Unlock()
	}()

	if m.IsDownloaded() {
		if onProgress != nil {
			onProgress(1.0)
		}
		return nil
	}
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transcribe: model download got status %d", resp.StatusCode)
	}

	partial := m.path() + ".partial"
	f, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	src := io.Reader(resp.Body)
	if onProgress != nil && resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, report: onProgress}
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = os.Remove(partial)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(partial)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(partial)
		return err
	}
	if err := os.Rename(partial, m.path()); err != nil {
		_ = os.Remove(partial)
		return err
	}
	if onProgress != nil {
		onProgress(1.0)
	}
	m.logger.Printf("offline model downloaded to %s", m.path())
	return nil
}

// Delete removes the model file. Absence is not an error.
func (m *Model) Delete() error {
	err := os.Remove(m.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Transcribe runs offline inference. An empty transcript is a failure: the
// current backend cannot distinguish silence from a decode error.
func (m *Model) Transcribe(ctx context.Context, audioPath string, onProgress func(float64)) (string, error) {
	if !m.IsDownloaded() {
		return "", ErrModelNotDownloaded
	}
	if m.infer == nil {
		return "", ErrNoInferencer
	}
	text, err := m.infer.Transcribe(ctx, m.path(), audioPath, onProgress)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// progressReader reports a monotone non-decreasing completion fraction.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   float64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	frac := float64(p.read) / float64(p.total)
	if frac > 1 {
		frac = 1
	}
	if frac > p.last {
		p.last = frac
		p.report(frac)
	}
	return n, err
}
