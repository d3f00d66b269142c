package audit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndVerify(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(OpEvidenceSaved, "audio/x.encrypted"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(OpAuthFailure, ""); err != nil {
		t.Fatal(err)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(l.Entries()) != 2 {
		t.Fatalf("len=%d, want 2", len(l.Entries()))
	}
}

func TestTamperIsDetected(t *testing.T) {
	l, _ := Open("")
	l.Append(OpEvidenceSaved, "a")
	l.Append(OpEvidenceDeleted, "a")
	l.entries[0].Detail = "b"
	if err := l.Verify(); !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken, got %v", err)
	}
}

func TestPersistAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Append(OpAuthSuccess, "")
	l.Append(OpEvidenceSaved, "photo/y.encrypted")
	l.Append(OpSyncPush, "2 uploaded")

	re, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(re.Entries()) != 3 {
		t.Fatalf("len=%d after reopen, want 3", len(re.Entries()))
	}
	// The chain continues across restarts.
	if _, err := re.Append(OpAuthLockout, ""); err != nil {
		t.Fatal(err)
	}
	if err := re.Verify(); err != nil {
		t.Fatalf("verify after reopen+append: %v", err)
	}
}

func TestTornLastLineIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, _ := Open(path)
	l.Append(OpAuthSuccess, "")
	l.Append(OpAuthFailure, "")

	// Simulate a crash mid-write of a third entry.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"ts":1,"op":"auth.fail`)
	f.Close()

	re, err := Open(path)
	if err != nil {
		t.Fatalf("reopen with torn tail: %v", err)
	}
	if len(re.Entries()) != 2 {
		t.Fatalf("len=%d, want 2 intact entries", len(re.Entries()))
	}
}

func TestReopenRejectsEditedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, _ := Open(path)
	l.Append(OpEvidenceSaved, "original")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(string(raw), "original", "rewrite!", 1)
	if err := os.WriteFile(path, []byte(edited), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken, got %v", err)
	}
}
