package tests

import (
	"bytes"
	"crypto/rand"
	"testing"

	cr "github.com/SomethingGoodLLC/VoiceIt-sub000/internal/crypto"
)

func FuzzSealOpen(f *testing.F) {
	f.Add([]byte("hello"), []byte("aad"))
	f.Add([]byte{}, []byte(nil))
	f.Fuzz(func(t *testing.T, pt, aad []byte) {
		key := make([]byte, 32)
		rand.Read(key)
		ct, err := cr.SealX(key, pt, aad)
		if err != nil {
			t.Skip()
		}
		if len(ct) != len(pt)+cr.EncryptedOverhead {
			t.Fatalf("overhead: got %d, want %d", len(ct)-len(pt), cr.EncryptedOverhead)
		}
		got, err := cr.OpenX(key, ct, aad)
		if err != nil {
			t.Fatalf("open err: %v", err)
		}
		if !bytes.Equal(pt, got) {
			t.Fatalf("roundtrip mismatch")
		}
	})
}

func FuzzOpenRejectsMutations(f *testing.F) {
	f.Add([]byte("a recorded statement"), 0, byte(1))
	f.Fuzz(func(t *testing.T, pt []byte, pos int, delta byte) {
		if delta == 0 {
			t.Skip()
		}
		key := make([]byte, 32)
		rand.Read(key)
		ct, err := cr.SealX(key, pt, nil)
		if err != nil {
			t.Skip()
		}
		if pos < 0 {
			pos = -pos
		}
		ct[pos%len(ct)] ^= delta
		if _, err := cr.OpenX(key, ct, nil); err == nil {
			t.Fatal("mutated ciphertext accepted")
		}
	})
}
