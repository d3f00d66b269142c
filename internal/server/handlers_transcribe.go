package server

import (
	"errors"
	"net/http"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/transcribe"
)

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.transcriber == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: "transcription not configured"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "missing audio field"})
		return
	}
	defer file.Close()

	src, err := s.spoolUpload(file, header.Filename)
	if err != nil {
		s.logger.Printf("spool audio: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	res, err := s.transcriber.TranscribeFile(r.Context(), src)
	if err != nil {
		s.writeTranscribeErr(w, err)
		return
	}
	s.metrics.transcriptions.WithLabelValues(string(res.Method)).Inc()
	// An optional artifact name makes the transcript searchable.
	if name := r.FormValue("name"); name != "" {
		s.search.Add(name, res.Text)
	}
	writeJSON(w, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	names := s.search.Query(r.URL.Query().Get("q"))
	if names == nil {
		names = []string{}
	}
	writeJSON(w, map[string][]string{"names": names})
}

func (s *Server) writeTranscribeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transcribe.ErrModelNotDownloaded):
		writeJSONStatus(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, transcribe.ErrPermissionDenied):
		writeJSONStatus(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, transcribe.ErrRecognizerUnavailable):
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, transcribe.ErrEmptyTranscript):
		writeJSONStatus(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		s.logger.Printf("transcribe: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "transcription failed"})
	}
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if s.model == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: "offline model not configured"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]bool{"downloaded": s.model.IsDownloaded()})
	case http.MethodDelete:
		if err := s.model.Delete(); err != nil {
			s.logger.Printf("delete model: %v", err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		writeJSON(w, map[string]bool{"deleted": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleModelDownload blocks until the download finishes. A download already
// in flight returns immediately; poll /api/model for completion.
func (s *Server) handleModelDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.model == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: "offline model not configured"})
		return
	}
	var last float64
	err := s.model.Download(r.Context(), func(p float64) {
		if p-last >= 0.1 || p == 1 {
			last = p
			s.logger.Printf("model download %.0f%%", p*100)
		}
	})
	if err != nil {
		s.logger.Printf("model download: %v", err)
		writeJSONStatus(w, http.StatusBadGateway, errorBody{Error: "download failed"})
		return
	}
	writeJSON(w, map[string]bool{"downloaded": s.model.IsDownloaded()})
}
