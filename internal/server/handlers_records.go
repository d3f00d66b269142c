package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		recs, err := s.vault.ListRecords(r.Context())
		if err != nil {
			s.logger.Printf("list records: %v", err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		if recs == nil {
			recs = []*vault.Evidence{}
		}
		writeJSON(w, recs)
	case http.MethodPost:
		var rec vault.Evidence
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "bad request body"})
			return
		}
		if err := s.vault.SaveRecord(r.Context(), &rec); err != nil {
			s.logger.Printf("save record: %v", err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		// Voice transcripts become searchable under the record ID.
		if rec.Voice != nil && rec.Voice.Transcription != "" {
			s.search.Add(rec.ID.String(), rec.Voice.Transcription)
		}
		s.auditAppend(audit.OpEvidenceSaved, "record/"+rec.ID.String())
		writeJSONStatus(w, http.StatusCreated, rec)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/records/"))
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "bad record id"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec, err := s.vault.LoadRecord(r.Context(), id)
		if errors.Is(err, vault.ErrRecordNotFound) {
			writeJSONStatus(w, http.StatusNotFound, errorBody{Error: "not found"})
			return
		}
		if err != nil {
			s.logger.Printf("load record %s: %v", id, err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		writeJSON(w, rec)
	case http.MethodDelete:
		if err := s.vault.DeleteRecord(r.Context(), id); err != nil {
			s.logger.Printf("delete record %s: %v", id, err)
			writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
			return
		}
		s.search.Remove(id.String())
		s.auditAppend(audit.OpEvidenceDeleted, "record/"+id.String())
		writeJSON(w, map[string]bool{"deleted": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
