package server

import (
	"fmt"
	"net/http"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
)

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sync == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: "sync not configured"})
		return
	}
	st, err := s.sync.Push(r.Context())
	if err != nil {
		s.logger.Printf("sync push: %v", err)
		writeJSONStatus(w, http.StatusBadGateway, errorBody{Error: "push failed"})
		return
	}
	s.auditAppend(audit.OpSyncPush, fmt.Sprintf("%d uploaded, %d skipped", st.Uploaded, st.Skipped))
	writeJSON(w, st)
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sync == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, errorBody{Error: "sync not configured"})
		return
	}
	st, err := s.sync.Pull(r.Context())
	if err != nil {
		s.logger.Printf("sync pull: %v", err)
		writeJSONStatus(w, http.StatusBadGateway, errorBody{Error: "pull failed"})
		return
	}
	s.auditAppend(audit.OpSyncPull, fmt.Sprintf("%d downloaded, %d skipped", st.Downloaded, st.Skipped))
	writeJSON(w, st)
}
