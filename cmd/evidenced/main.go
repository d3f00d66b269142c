package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/audit"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/auth"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/config"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/crypto"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/keystore"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/platform"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/server"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/storage"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/syncer"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/transcribe"
	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	logger := log.New(os.Stdout, "[evidenced] ", log.LstdFlags|log.Lshortfile)

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Printf("disable core dumps: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ks, err := keystore.NewFileStore(cfg.KeystoreDir())
	if err != nil {
		logger.Fatalf("keystore: %v", err)
	}
	engine := crypto.NewEngine(ks, logger)
	defer engine.Close()

	v, err := vault.New(cfg.VaultDir(), engine, vault.WithLogger(logger))
	if err != nil {
		logger.Fatalf("vault: %v", err)
	}

	session := auth.NewService(ks, nil,
		auth.WithAutoLockTimeout(cfg.AutoLockTimeout()),
		auth.WithLogger(logger))

	auditLog, err := audit.Open(cfg.AuditLog)
	if err != nil {
		logger.Fatalf("audit log: %v", err)
	}

	var online transcribe.Recognizer
	if cfg.Transcription.OnlineEndpoint != "" {
		online = transcribe.NewOnlineEngine(cfg.Transcription.OnlineEndpoint, cfg.Transcription.OnlineAPIKey, 0)
	}
	var model *transcribe.Model
	if cfg.Transcription.ModelURL != "" {
		model = transcribe.NewModel(cfg.Transcription.ModelDir, cfg.Transcription.ModelURL, nil, logger)
	}
	var transcriber *transcribe.Engine
	if online != nil || model != nil {
		mode := func() transcribe.Mode {
			m, _ := transcribe.ParseMode(cfg.Transcription.Mode)
			return m
		}
		transcriber = transcribe.NewEngine(online, model, mode, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := buildSyncer(ctx, cfg, v, logger)
	if err != nil {
		logger.Fatalf("sync: %v", err)
	}

	srv, err := server.New(server.Deps{
		Config:      cfg,
		Session:     session,
		Vault:       v,
		Transcriber: transcriber,
		Model:       model,
		Sync:        sc,
		Audit:       auditLog,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutCtx)
	}()

	logger.Printf("listening on %s, data in %s", cfg.Listen, cfg.DataDir)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

func buildSyncer(ctx context.Context, cfg *config.Config, v *vault.Vault, logger *log.Logger) (*syncer.Syncer, error) {
	switch {
	case cfg.Sync.MongoURI != "":
		blobs, err := storage.NewMongoBlobStore(ctx, cfg.Sync.MongoURI, cfg.Sync.MongoDB, cfg.Sync.BlobsCollection)
		if err != nil {
			return nil, err
		}
		metas, err := storage.NewMongoMetaStore(ctx, cfg.Sync.MongoURI, cfg.Sync.MongoDB, cfg.Sync.MetaCollection)
		if err != nil {
			return nil, err
		}
		return syncer.New(v, blobs, metas, syncer.WithLogger(logger)), nil
	case cfg.Sync.LocalDir != "":
		blobs := storage.NewFileBlobStore(cfg.Sync.LocalDir)
		metas, err := storage.NewFileMetaStore(cfg.Sync.LocalDir)
		if err != nil {
			return nil, err
		}
		return syncer.New(v, blobs, metas, syncer.WithLogger(logger)), nil
	default:
		return nil, nil
	}
}
