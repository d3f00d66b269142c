package vault

import (
	"time"

	"github.com/google/uuid"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/transcribe"
)

// EvidenceKind is the closed set of evidence variants. Consumers switch on
// Kind in one place instead of scattering type probes.
type EvidenceKind string

const (
	KindVoice EvidenceKind = "voice"
	KindPhoto EvidenceKind = "photo"
	KindVideo EvidenceKind = "video"
	KindText  EvidenceKind = "text"
)

// GeoPoint is an optional capture location.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Evidence is the record a capture produces. Exactly one of the payload
// pointers matching Kind is set; the rest are nil.
type Evidence struct {
	ID         uuid.UUID    `json:"id"`
	Kind       EvidenceKind `json:"kind"`
	CapturedAt time.Time    `json:"captured_at"`
	Notes      string       `json:"notes,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
	Critical   bool         `json:"critical"`
	Location   *GeoPoint    `json:"location,omitempty"`

	Voice *VoicePayload `json:"voice,omitempty"`
	Photo *PhotoPayload `json:"photo,omitempty"`
	Video *VideoPayload `json:"video,omitempty"`
	Text  *TextPayload  `json:"text,omitempty"`
}

type VoicePayload struct {
	File          StoredFile        `json:"file"`
	Transcription string            `json:"transcription,omitempty"`
	Method        transcribe.Method `json:"transcription_method"`
}

type PhotoPayload struct {
	File StoredFile `json:"file"`
}

type VideoPayload struct {
	File StoredFile `json:"file"`
}

type TextPayload struct {
	Body string `json:"body"`
}

// StoredFiles returns every durable artifact the record owns, thumbnails
// included. Deleting a record means deleting each of these.
func (e *Evidence) StoredFiles() []struct {
	Name string
	Type MediaType
} {
	var out []struct {
		Name string
		Type MediaType
	}
	add := func(name string, mt MediaType) {
		if name != "" {
			out = append(out, struct {
				Name string
				Type MediaType
			}{name, mt})
		}
	}
	switch e.Kind {
	case KindVoice:
		if e.Voice != nil {
			add(e.Voice.File.Name, MediaAudio)
		}
	case KindPhoto:
		if e.Photo != nil {
			add(e.Photo.File.Name, MediaPhoto)
		}
	case KindVideo:
		if e.Video != nil {
			add(e.Video.File.Name, MediaVideo)
			add(e.Video.File.ThumbnailName, MediaPhoto)
		}
	}
	return out
}
