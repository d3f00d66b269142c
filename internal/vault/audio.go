package vault

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

var errNotWAV = errors.New("vault: not a RIFF/WAVE file")

// wavDuration reads enough of a RIFF/WAVE header to compute duration from
// the fmt chunk's byte rate and the data chunk's length. This must run on
// the plaintext before encryption; ciphertext is opaque. Non-WAV captures
// fall through to the injected prober.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0, errNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errNotWAV
	}

	var byteRate uint32
	var dataLen uint32
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			break
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		switch id {
		case "fmt ":
			var fmtChunk [16]byte
			if size < 16 {
				return 0, errNotWAV
			}
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return 0, errNotWAV
			}
			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			if skip := int64(size) - 16; skip > 0 {
				if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			dataLen = size
			if _, err := f.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, err
			}
		default:
			// Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return 0, err
			}
		}
		if byteRate != 0 && dataLen != 0 {
			break
		}
	}
	if byteRate == 0 || dataLen == 0 {
		return 0, errNotWAV
	}
	return float64(dataLen) / float64(byteRate), nil
}
