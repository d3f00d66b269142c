package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func TestRecordCRUDAndSearch(t *testing.T) {
	ts, _ := newTestServer(t)
	token := unlock(t, ts)

	// Create a voice record with a transcript.
	body := map[string]any{
		"kind":  "voice",
		"notes": "recorded at the door",
		"voice": map[string]any{
			"file":                 map[string]any{"name": "x.m4a.encrypted", "size_bytes": 100},
			"transcription":        "open the door right now",
			"transcription_method": "offline",
		},
	}
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/records", jsonBody(t, body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var rec vault.Evidence
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	// Fetch it back.
	resp = authedGet(t, ts.URL+"/api/records/"+rec.ID.String(), token)
	var got vault.Evidence
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got.Notes != "recorded at the door" || got.Voice == nil {
		t.Fatalf("fetched %+v", got)
	}

	// The transcript is searchable.
	resp = authedGet(t, ts.URL+"/api/search?q=door", token)
	var hits struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(hits.Names) != 1 || hits.Names[0] != rec.ID.String() {
		t.Fatalf("search hits %v", hits.Names)
	}

	// Delete drops the record and its search entry.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/records/"+rec.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp = authedGet(t, ts.URL+"/api/records/"+rec.ID.String(), token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("fetch after delete: status %d", resp.StatusCode)
	}
	resp = authedGet(t, ts.URL+"/api/search?q=door", token)
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(hits.Names) != 0 {
		t.Fatalf("stale search hits %v", hits.Names)
	}
}
