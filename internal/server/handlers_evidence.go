package server

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

const maxUploadBytes = 512 << 20

func (s *Server) handleEvidenceList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	types := []vault.MediaType{vault.MediaAudio, vault.MediaPhoto, vault.MediaVideo}
	if q := r.URL.Query().Get("type"); q != "" {
		mt, err := vault.ParseMediaType(q)
		if err != nil {
			writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "unknown media type"})
			return
		}
		types = []vault.MediaType{mt}
	}
	out := make([]vault.Artifact, 0)
	for _, mt := range types {
		arts, err := s.vault.Artifacts(mt)
		if err != nil {
			s.logger.Printf("list %s: %v", mt, err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		out = append(out, arts...)
	}
	writeJSON(w, out)
}

// handleEvidence dispatches /api/evidence/{type} and /api/evidence/{type}/{name}.
func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/evidence/")
	typePart, name, _ := strings.Cut(rest, "/")
	mt, err := vault.ParseMediaType(typePart)
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "unknown media type"})
		return
	}

	switch {
	case name == "" && r.Method == http.MethodPost:
		s.saveEvidence(w, r, mt)
	case name != "" && r.Method == http.MethodGet:
		s.loadEvidence(w, r, mt, name)
	case name != "" && r.Method == http.MethodDelete:
		s.deleteEvidence(w, mt, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) saveEvidence(w http.ResponseWriter, r *http.Request, mt vault.MediaType) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "missing file field"})
		return
	}
	defer file.Close()

	var sf vault.StoredFile
	switch mt {
	case vault.MediaPhoto:
		img, _, derr := image.Decode(file)
		if derr != nil {
			writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "undecodable image"})
			return
		}
		sf, err = s.vault.SaveImage(r.Context(), img)
	default:
		src, serr := s.spoolUpload(file, header.Filename)
		if serr != nil {
			s.logger.Printf("spool upload: %v", serr)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		if mt == vault.MediaAudio {
			sf, err = s.vault.SaveAudio(r.Context(), src)
		} else {
			sf, err = s.vault.SaveVideo(r.Context(), src)
		}
	}
	if err != nil {
		s.logger.Printf("save %s: %v", mt, err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "save failed"})
		return
	}

	s.metrics.evidenceSaved.WithLabelValues(string(mt)).Inc()
	s.auditAppend(audit.OpEvidenceSaved, string(mt)+"/"+sf.Name)
	writeJSONStatus(w, http.StatusCreated, sf)
}

// spoolUpload lands the multipart stream on disk so the vault can run its
// encrypt-then-shred protocol against a real file.
func (s *Server) spoolUpload(src io.Reader, original string) (string, error) {
	dir, err := os.MkdirTemp("", "evidence-upload-*")
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(filepath.Base(original))
	path := filepath.Join(dir, "upload"+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func (s *Server) loadEvidence(w http.ResponseWriter, r *http.Request, mt vault.MediaType, name string) {
	data, err := s.vault.LoadBytes(r.Context(), name, mt)
	if errors.Is(err, vault.ErrFileNotFound) {
		writeJSONStatus(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	if err != nil {
		s.logger.Printf("load %s/%s: %v", mt, name, err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	s.auditAppend(audit.OpEvidenceLoaded, string(mt)+"/"+name)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) deleteEvidence(w http.ResponseWriter, mt vault.MediaType, name string) {
	if err := s.vault.Delete(name, mt); err != nil {
		s.logger.Printf("delete %s/%s: %v", mt, name, err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	s.search.Remove(name)
	s.auditAppend(audit.OpEvidenceDeleted, string(mt)+"/"+name)
	writeJSON(w, map[string]bool{"deleted": true})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	total, err := s.vault.TotalBytesUsed()
	if err != nil {
		s.logger.Printf("usage: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	s.metrics.bytesStored.Set(float64(total))
	writeJSON(w, map[string]int64{"total_bytes_used": total})
}
