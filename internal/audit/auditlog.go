package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Op names an auditable action. The log records that an action happened,
// never its plaintext content.
type Op string

const (
	OpEvidenceSaved   Op = "evidence.saved"
	OpEvidenceLoaded  Op = "evidence.loaded"
	OpEvidenceDeleted Op = "evidence.deleted"
	OpAuthSuccess     Op = "auth.success"
	OpAuthFailure     Op = "auth.failure"
	OpAuthLockout     Op = "auth.lockout"
	OpSyncPush        Op = "sync.push"
	OpSyncPull        Op = "sync.pull"
)

var ErrChainBroken = errors.New("audit: hash chain broken")

// Entry is one hash-chained record. Hash covers the previous entry's hash,
// the op, and the detail, so any rewrite of history invalidates the tail.
type Entry struct {
	TS     int64  `json:"ts"`
	Op     Op     `json:"op"`
	Detail string `json:"detail,omitempty"`
	Hash   string `json:"hash"`
}

// Log is an append-only tamper-evident record, persisted as JSONL so a
// partial last line (crash mid-write) can be detected and dropped.
type Log struct {
	mu       sync.Mutex
	path     string
	lastHash []byte
	entries  []Entry
}

// Open loads an existing log from path, verifying the chain, or starts an
// empty one. An empty path keeps the log memory-only.
func Open(path string) (*Log, error) {
	l := &Log{path: path}
	if path == "" {
		return l, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// Torn final line from a crash; everything before it is intact.
			break
		}
		l.entries = append(l.entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := l.verifyLocked(); err != nil {
		return nil, err
	}
	if n := len(l.entries); n > 0 {
		sum, err := hex.DecodeString(l.entries[n-1].Hash)
		if err != nil {
			return nil, fmt.Errorf("audit: bad hash in entry %d: %w", n-1, err)
		}
		l.lastHash = sum
	}
	return l, nil
}

// Append records one action and persists it before returning.
func (l *Log) Append(op Op, detail string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sum := chain(l.lastHash, op, detail)
	e := Entry{
		TS:     time.Now().Unix(),
		Op:     op,
		Detail: detail,
		Hash:   hex.EncodeToString(sum),
	}
	if l.path != "" {
		line, err := json.Marshal(e)
		if err != nil {
			return Entry{}, err
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return Entry{}, err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return Entry{}, err
		}
		if err := f.Close(); err != nil {
			return Entry{}, err
		}
	}
	l.lastHash = sum
	l.entries = append(l.entries, e)
	return e, nil
}

// Verify walks the whole chain.
func (l *Log) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verifyLocked()
}

func (l *Log) verifyLocked() error {
	var prev []byte
	for i, e := range l.entries {
		sum := chain(prev, e.Op, e.Detail)
		if hex.EncodeToString(sum) != e.Hash {
			return fmt.Errorf("%w at entry %d", ErrChainBroken, i)
		}
		prev = sum
	}
	return nil
}

// Entries returns a copy of the in-memory log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func chain(prev []byte, op Op, detail string) []byte {
	h := sha256.New()
	h.Write(prev)
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write([]byte(detail))
	return h.Sum(nil)
}
