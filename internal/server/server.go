package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/auth"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/config"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/search"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/syncer"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/transcribe"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

// Deps are the assembled components the daemon serves. Sync may be nil when
// no remote is configured; every other field is required.
type Deps struct {
	Config      *config.Config
	Session     *auth.Service
	Vault       *vault.Vault
	Transcriber *transcribe.Engine
	Model       *transcribe.Model
	Sync        *syncer.Syncer
	Audit       *audit.Log
	Logger      *log.Logger
}

type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	signer *auth.JWTSigner

	session     *auth.Service
	vault       *vault.Vault
	transcriber *transcribe.Engine
	model       *transcribe.Model
	sync        *syncer.Syncer
	audit       *audit.Log
	search      *search.Index
	logger      *log.Logger
	metrics     *metrics

	rlVerifyIP *multiLimiter
}

func New(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Session == nil || deps.Vault == nil {
		return nil, errors.New("server: missing required deps")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	}

	priv, _, err := auth.GenerateEd25519()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         deps.Config,
		mux:         http.NewServeMux(),
		signer:      auth.NewJWTSigner(priv, deps.Config.JWTIssuer, deps.Config.TokenTTL),
		session:     deps.Session,
		vault:       deps.Vault,
		transcriber: deps.Transcriber,
		model:       deps.Model,
		sync:        deps.Sync,
		audit:       deps.Audit,
		search:      search.New(),
		logger:      logger,
		metrics:     newMetrics(),
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlVerifyIP = newMultiLimiter(rate.Limit(perWindow(10, time.Minute)), 10, 1*time.Hour)

	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") && !s.isPublic(path) {
		handler := auth.AuthRequired(s.signer)(http.HandlerFunc(s.serveAuthenticated))
		handler.ServeHTTP(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// serveAuthenticated runs behind the JWT gate. The idle timer is enforced
// here: a stale session is re-locked before the request is dispatched.
func (s *Server) serveAuthenticated(w http.ResponseWriter, r *http.Request) {
	if s.session.ShouldAutoLock() {
		s.session.Lock()
		s.logger.Printf("session auto-locked after inactivity")
		writeJSONStatus(w, http.StatusUnauthorized, errorBody{Error: "session expired"})
		return
	}
	if !s.session.IsAuthenticated() {
		writeJSONStatus(w, http.StatusUnauthorized, errorBody{Error: "locked"})
		return
	}
	s.session.Touch()
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

func (s *Server) isPublic(path string) bool {
	switch path {
	case "/health", "/api/health", "/api/auth/session",
		"/api/auth/passcode", "/api/auth/passcode/verify",
		"/api/auth/biometric":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
}

func (s *Server) auditAppend(op audit.Op, detail string) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Append(op, detail); err != nil {
		s.logger.Printf("audit append failed: %v", err)
	}
}
