package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SomethingGoodLLC/VoiceIt-sub000/internal/transcribe"
)

type TranscriptionConfig struct {
	Mode           string `yaml:"mode"`
	OnlineEndpoint string `yaml:"online_endpoint"`
	OnlineAPIKey   string `yaml:"online_api_key"`
	ModelURL       string `yaml:"model_url"`
	ModelDir       string `yaml:"model_dir"`
}

type SyncConfig struct {
	MongoURI        string `yaml:"mongo_uri"`
	MongoDB         string `yaml:"mongo_db"`
	BlobsCollection string `yaml:"blobs_collection"`
	MetaCollection  string `yaml:"meta_collection"`
	// LocalDir selects the filesystem backend instead of Mongo.
	LocalDir string `yaml:"local_dir"`
}

type Config struct {
	DataDir         string              `yaml:"data_dir"`
	Listen          string              `yaml:"listen"`
	AutoLockSeconds int                 `yaml:"auto_lock_seconds"`
	JWTIssuer       string              `yaml:"jwt_issuer"`
	TokenTTL        time.Duration       `yaml:"token_ttl"`
	AuditLog        string              `yaml:"audit_log"`
	Transcription   TranscriptionConfig `yaml:"transcription"`
	Sync            SyncConfig          `yaml:"sync"`
}

// Load reads a YAML config file and applies defaults. A missing file is not
// an error; defaults alone make a working local setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8750"
	}
	if c.AutoLockSeconds <= 0 {
		c.AutoLockSeconds = 300
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "voiceit-daemon"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.AuditLog == "" {
		c.AuditLog = filepath.Join(c.DataDir, "audit.jsonl")
	}
	if c.Transcription.Mode == "" {
		c.Transcription.Mode = string(transcribe.ModeAutomatic)
	}
	if c.Transcription.ModelDir == "" {
		c.Transcription.ModelDir = filepath.Join(c.DataDir, "models")
	}
	if c.Sync.MongoDB == "" {
		c.Sync.MongoDB = "voiceit"
	}
	if c.Sync.BlobsCollection == "" {
		c.Sync.BlobsCollection = "blobs"
	}
	if c.Sync.MetaCollection == "" {
		c.Sync.MetaCollection = "artifacts"
	}
}

func (c *Config) validate() error {
	if _, err := transcribe.ParseMode(c.Transcription.Mode); err != nil {
		return fmt.Errorf("transcription.mode: %w", err)
	}
	return nil
}

// VaultDir is where encrypted evidence lives.
func (c *Config) VaultDir() string { return filepath.Join(c.DataDir, "vault") }

// KeystoreDir holds sealed secrets.
func (c *Config) KeystoreDir() string { return filepath.Join(c.DataDir, "keystore") }

// AutoLockTimeout as a duration.
func (c *Config) AutoLockTimeout() time.Duration {
	return time.Duration(c.AutoLockSeconds) * time.Second
}
