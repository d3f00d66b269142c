package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/auth"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/config"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/crypto"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.Service) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	ks := keystore.NewMemoryStore()
	engine := crypto.NewEngine(ks, nil)
	t.Cleanup(func() { engine.Close() })
	v, err := vault.New(t.TempDir(), engine)
	if err != nil {
		t.Fatal(err)
	}
	session := auth.NewService(ks, nil)
	auditLog, err := audit.Open("")
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Deps{
		Config:  cfg,
		Session: session,
		Vault:   v,
		Audit:   auditLog,
		Logger:  log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, session
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func unlock(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/auth/passcode", map[string]string{"passcode": "135790"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set passcode: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/auth/passcode/verify", map[string]string{"passcode": "135790"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: status %d", resp.StatusCode)
	}
	var tok tokenBody
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatal(err)
	}
	if tok.Token == "" {
		t.Fatal("empty token")
	}
	return tok.Token
}

func authedGet(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/evidence")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestPasscodeVerifyIssuesUsableToken(t *testing.T) {
	ts, _ := newTestServer(t)
	token := unlock(t, ts)

	resp := authedGet(t, ts.URL+"/api/evidence", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list with token: status %d", resp.StatusCode)
	}
}

func TestWrongPasscodeCountsAttempt(t *testing.T) {
	ts, session := newTestServer(t)
	unlock(t, ts)

	resp := postJSON(t, ts.URL+"/api/auth/passcode/verify", map[string]string{"passcode": "000000"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	if got := session.Snapshot().FailedAttempts; got != 1 {
		t.Fatalf("failedAttempts=%d, want 1", got)
	}

	resp, err := http.Get(ts.URL + "/api/auth/session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var sess sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	if sess.FailedAttempts != 1 || !sess.HasPasscode {
		t.Fatalf("session %+v", sess)
	}
}

func TestTooManyAttemptsSurfacesAs429(t *testing.T) {
	ts, _ := newTestServer(t)
	unlock(t, ts)

	for i := 0; i < 5; i++ {
		resp := postJSON(t, ts.URL+"/api/auth/passcode/verify", map[string]string{"passcode": fmt.Sprintf("00000%d", i)})
		resp.Body.Close()
	}
	resp := postJSON(t, ts.URL+"/api/auth/passcode/verify", map[string]string{"passcode": "135790"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", resp.StatusCode)
	}
}

func TestEvidenceUploadLoadDelete(t *testing.T) {
	ts, _ := newTestServer(t)
	token := unlock(t, ts)
	payload := bytes.Repeat([]byte{0x5a}, 2048)

	// Upload.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "capture.m4a")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(payload)
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/evidence/audio", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	var sf vault.StoredFile
	if err := json.NewDecoder(resp.Body).Decode(&sf); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// Load round-trips the plaintext.
	resp = authedGet(t, ts.URL+"/api/evidence/audio/"+sf.Name, token)
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, payload) {
		t.Fatalf("load: status %d, %d bytes", resp.StatusCode, len(got))
	}

	// Delete, then load is a 404.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/evidence/audio/"+sf.Name, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp = authedGet(t, ts.URL+"/api/evidence/audio/"+sf.Name, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("load after delete: status %d, want 404", resp.StatusCode)
	}
}

func TestUsageEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	token := unlock(t, ts)
	resp := authedGet(t, ts.URL+"/api/usage", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["total_bytes_used"] != 0 {
		t.Fatalf("usage=%d on empty vault", body["total_bytes_used"])
	}
}

func TestMetricsExposed(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestSyncUnconfiguredIs503(t *testing.T) {
	ts, _ := newTestServer(t)
	token := unlock(t, ts)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/sync/push", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
}
