package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/auth"
)

type errorBody struct {
	Error string `json:"error"`
}

type tokenBody struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type sessionBody struct {
	Authenticated    bool `json:"authenticated"`
	HasPasscode      bool `json:"has_passcode"`
	FailedAttempts   int  `json:"failed_attempts"`
	LockedForSeconds int  `json:"locked_for_seconds"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.session.Snapshot()
	writeJSON(w, sessionBody{
		Authenticated:    snap.Authenticated,
		HasPasscode:      s.session.HasPasscode(),
		FailedAttempts:   snap.FailedAttempts,
		LockedForSeconds: s.session.RemainingLockSeconds(),
	})
}

// handlePasscode sets or replaces the passcode. Replacing requires the
// current one; there is no account to recover through, so a forgotten
// passcode is handled on the device, not here.
func (s *Server) handlePasscode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Current  string `json:"current"`
		Passcode string `json:"passcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "bad request body"})
		return
	}
	if s.session.HasPasscode() {
		ok, err := s.session.VerifyPasscode(req.Current)
		if err != nil {
			s.writeAuthErr(w, err)
			return
		}
		if !ok {
			s.metrics.authFailures.Inc()
			writeJSONStatus(w, http.StatusUnauthorized, errorBody{Error: "current passcode incorrect"})
			return
		}
	}
	if err := s.session.SetPasscode(req.Passcode); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handlePasscodeVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rlVerifyIP.allow(getClientIP(r)) {
		tooMany(w, 60)
		return
	}
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody{Error: "bad request body"})
		return
	}

	ok, err := s.session.VerifyPasscode(req.Passcode)
	if err != nil {
		s.writeAuthErr(w, err)
		return
	}
	if !ok {
		s.metrics.authFailures.Inc()
		s.auditAppend(audit.OpAuthFailure, "passcode")
		writeJSONStatus(w, http.StatusUnauthorized, errorBody{Error: "incorrect passcode"})
		return
	}
	s.issueToken(w)
}

func (s *Server) handleBiometric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "unlock evidence vault"
	}

	if err := s.session.Authenticate(r.Context(), req.Reason); err != nil {
		s.metrics.authFailures.Inc()
		s.auditAppend(audit.OpAuthFailure, "biometric")
		s.writeAuthErr(w, err)
		return
	}
	s.issueToken(w)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.session.Lock()
	writeJSON(w, map[string]bool{"locked": true})
}

func (s *Server) issueToken(w http.ResponseWriter) {
	s.auditAppend(audit.OpAuthSuccess, "")
	token, exp, err := s.signer.IssueToken("device")
	if err != nil {
		s.logger.Printf("issue token: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, tokenBody{Token: token, ExpiresAt: exp.Unix()})
}

func (s *Server) writeAuthErr(w http.ResponseWriter, err error) {
	var le *auth.LockedError
	switch {
	case errors.As(err, &le):
		s.auditAppend(audit.OpAuthLockout, "")
		w.Header().Set("Retry-After", itoaSeconds(le.Remaining))
		writeJSONStatus(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeJSONStatus(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrPasscodeNotSet),
		errors.Is(err, auth.ErrBiometryNotAvailable):
		writeJSONStatus(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrAuthenticationFailed):
		writeJSONStatus(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	default:
		s.logger.Printf("auth error: %v", err)
		writeJSONStatus(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
