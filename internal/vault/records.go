package vault

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("vault: record not found")

const recordsBucket = "records"

func (v *Vault) recordsDir() string { return filepath.Join(v.root, recordsBucket) }

func (v *Vault) recordPath(id uuid.UUID) string {
	return filepath.Join(v.recordsDir(), id.String()+".rec")
}

// SaveRecord encrypts an evidence record to the records bucket, assigning an
// ID and capture time on first save. Existing records are replaced in place.
func (v *Vault) SaveRecord(ctx context.Context, rec *Evidence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(v.recordsDir(), 0o700); err != nil {
		return err
	}
	pt, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ct, err := v.cipher.Encrypt(pt)
	if err != nil {
		return err
	}
	return os.WriteFile(v.recordPath(rec.ID), ct, 0o600)
}

// LoadRecord decrypts one record by ID.
func (v *Vault) LoadRecord(ctx context.Context, id uuid.UUID) (*Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ct, err := os.ReadFile(v.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	pt, err := v.cipher.Decrypt(ct)
	if err != nil {
		return nil, err
	}
	var rec Evidence
	if err := json.Unmarshal(pt, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords decrypts every record, newest capture first. Undecryptable
// entries fail the listing; a tampered record must surface, not vanish.
func (v *Vault) ListRecords(ctx context.Context) ([]*Evidence, error) {
	entries, err := os.ReadDir(v.recordsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*Evidence, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rec") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(e.Name(), ".rec"))
		if err != nil {
			continue
		}
		rec, err := v.LoadRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	return out, nil
}

// DeleteRecord removes a record and every artifact it owns. Record absence
// is not an error, matching artifact Delete semantics.
func (v *Vault) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	rec, err := v.LoadRecord(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, f := range rec.StoredFiles() {
		if err := v.Delete(f.Name, f.Type); err != nil {
			return err
		}
	}
	err = os.Remove(v.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
