package tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/crypto"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

func FuzzVaultAudioRoundTrip(f *testing.F) {
	f.Add([]byte("not really audio but stored all the same"))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, payload []byte) {
		engine := crypto.NewEngine(keystore.NewMemoryStore(), nil)
		defer engine.Close()
		v, err := vault.New(filepath.Join(t.TempDir(), "vault"), engine)
		if err != nil {
			t.Fatal(err)
		}

		src := filepath.Join(t.TempDir(), "clip.m4a")
		if err := os.WriteFile(src, payload, 0o600); err != nil {
			t.Fatal(err)
		}
		sf, err := v.SaveAudio(context.Background(), src)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if sf.SizeBytes != int64(len(payload)+crypto.EncryptedOverhead) {
			t.Fatalf("stored size %d for %d plaintext bytes", sf.SizeBytes, len(payload))
		}
		got, err := v.LoadBytes(context.Background(), sf.Name, vault.MediaAudio)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatal("payload mismatch after round trip")
		}
	})
}
