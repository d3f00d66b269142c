package transcribe

import (
	"context"
	"fmt"
	"log"
)

// Method records which engine actually produced a transcript. Shown to the
// user as a provenance badge, so it is never guessed: MethodNone means no
// engine ran.
type Method string

const (
	MethodOnline  Method = "online"
	MethodOffline Method = "offline"
	MethodNone    Method = "none"
)

// Mode is the persisted routing preference.
type Mode string

const (
	ModeOnlineOnly  Mode = "online-only"
	ModeOfflineOnly Mode = "offline-only"
	ModeAutomatic   Mode = "automatic"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOnlineOnly, ModeOfflineOnly, ModeAutomatic:
		return Mode(s), nil
	}
	return "", fmt.Errorf("transcribe: unknown mode %q", s)
}

// Result pairs a transcript with its provenance.
type Result struct {
	Text   string `json:"text"`
	Method Method `json:"method"`
}

// Recognizer is any engine that turns an audio file into text.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// FallbackObserver is notified when automatic mode silently switches from
// the offline model to the online engine. The change is user-visible through
// the provenance badge, so it must stay observable.
type FallbackObserver func(cause error)

// Engine routes transcription requests between the online recognizer and the
// offline model according to the configured mode.
type Engine struct {
	online     Recognizer
	model      *Model
	mode       func() Mode
	onFallback FallbackObserver
	logger     *log.Logger
}

// NewEngine wires the strategy router. mode is read per call so a settings
// change applies to the next request without rebuilding the engine.
func NewEngine(online Recognizer, model *Model, mode func() Mode, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{online: online, model: model, mode: mode, logger: logger}
}

// OnFallback registers the observer for automatic-mode fallbacks.
func (e *Engine) OnFallback(fn FallbackObserver) { e.onFallback = fn }

// TranscribeFile runs the routing algorithm:
//
//	online-only:  always the online engine.
//	offline-only: the model must be present; no silent fallback.
//	automatic:    offline first when present, online on any offline failure;
//	              straight to online when the model is absent.
func (e *Engine) TranscribeFile(ctx context.Context, audioPath string) (Result, error) {
	switch e.mode() {
	case ModeOnlineOnly:
		return e.transcribeOnline(ctx, audioPath)

	case ModeOfflineOnly:
		if !e.model.IsDownloaded() {
			return Result{Method: MethodNone}, ErrModelNotDownloaded
		}
		return e.transcribeOffline(ctx, audioPath)

	case ModeAutomatic:
		if e.model.IsDownloaded() {
			res, err := e.transcribeOffline(ctx, audioPath)
			if err == nil {
				return res, nil
			}
			e.logger.Printf("offline transcription failed, falling back to online: %v", err)
			if e.onFallback != nil {
				e.onFallback(err)
			}
		}
		return e.transcribeOnline(ctx, audioPath)
	}
	return Result{Method: MethodNone}, fmt.Errorf("transcribe: unknown mode %q", e.mode())
}

func (e *Engine) transcribeOnline(ctx context.Context, audioPath string) (Result, error) {
	if e.online == nil {
		return Result{Method: MethodNone}, ErrRecognizerUnavailable
	}
	text, err := e.online.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{Method: MethodNone}, err
	}
	return Result{Text: text, Method: MethodOnline}, nil
}

func (e *Engine) transcribeOffline(ctx context.Context, audioPath string) (Result, error) {
	text, err := e.model.Transcribe(ctx, audioPath, nil)
	if err != nil {
		return Result{Method: MethodNone}, &OfflineError{Err: err}
	}
	return Result{Text: text, Method: MethodOffline}, nil
}
