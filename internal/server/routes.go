package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", s.metrics.handler())

	s.mux.HandleFunc("/api/auth/session", s.handleSession)
	s.mux.HandleFunc("/api/auth/passcode", s.handlePasscode)
	s.mux.HandleFunc("/api/auth/passcode/verify", s.handlePasscodeVerify)
	s.mux.HandleFunc("/api/auth/biometric", s.handleBiometric)
	s.mux.HandleFunc("/api/auth/lock", s.handleLock)

	s.mux.HandleFunc("/api/evidence", s.handleEvidenceList)
	s.mux.HandleFunc("/api/evidence/", s.handleEvidence)
	s.mux.HandleFunc("/api/usage", s.handleUsage)

	s.mux.HandleFunc("/api/records", s.handleRecords)
	s.mux.HandleFunc("/api/records/", s.handleRecordByID)

	s.mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/model", s.handleModel)
	s.mux.HandleFunc("/api/model/download", s.handleModelDownload)

	s.mux.HandleFunc("/api/sync/push", s.handleSyncPush)
	s.mux.HandleFunc("/api/sync/pull", s.handleSyncPull)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
