package vault

import (
	"time"

	"github.com/google/uuid"
)

// MediaType selects the on-disk bucket for an artifact.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

func (m MediaType) valid() bool {
	switch m {
	case MediaAudio, MediaPhoto, MediaVideo:
		return true
	}
	return false
}

// bucket is the directory name under the vault root.
func (m MediaType) bucket() string { return string(m) }

// ParseMediaType converts a wire string back to a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	mt := MediaType(s)
	if !mt.valid() {
		return "", ErrBadMediaType
	}
	return mt, nil
}

// StoredFile references a durable encrypted artifact. Name is the file's
// name within its bucket, including the encryption suffix.
type StoredFile struct {
	Name            string  `json:"name"`
	SizeBytes       int64   `json:"size_bytes"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	ThumbnailName   string  `json:"thumbnail_name,omitempty"`
}

// artifactName builds a timestamp-derived name. The uuid suffix keeps two
// captures within the same nanosecond from colliding.
func artifactName(ext string) string {
	return time.Now().UTC().Format("20060102T150405.000000000") + "-" + uuid.NewString()[:8] + ext
}
