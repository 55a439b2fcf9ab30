// Package config loads the drafting session configuration from an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

type Config struct {
	Endpoint    string                `yaml:"endpoint"`
	Policy      syncstore.InputPolicy `yaml:"policy"`
	IdleTimeout time.Duration         `yaml:"idleTimeout"`
	DocID       string                `yaml:"docId"`
	Guided      bool                  `yaml:"guided"`
	AutoSync    bool                  `yaml:"autoSync"`

	Autosave AutosaveConfig    `yaml:"autosave"`
	Deepgram DeepgramConfig    `yaml:"deepgram"`
	Backend  BackendConfig     `yaml:"backend"`
	Schema   validation.Schema `yaml:"schema"`
}

type AutosaveConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	Delay   time.Duration `yaml:"delay"`
}

type DeepgramConfig struct {
	// APIKey only comes from the environment.
	APIKey    string `yaml:"-"`
	Model     string `yaml:"model"`
	Language  string `yaml:"language"`
	ListenURL string `yaml:"listenUrl"`
}

type BackendConfig struct {
	Addr       string        `yaml:"addr"`
	ChunkDelay time.Duration `yaml:"chunkDelay"`
}

func Default() *Config {
	return &Config{
		Endpoint:    "http://localhost:8787/sync",
		Policy:      syncstore.PolicyExclusive,
		IdleTimeout: 30 * time.Second,
		DocID:       "charter",
		AutoSync:    true,
		Autosave: AutosaveConfig{
			Enabled: true,
			Path:    ".draftsync",
			Delay:   750 * time.Millisecond,
		},
		Deepgram: DeepgramConfig{
			Model:     "nova-3",
			Language:  "en-US",
			ListenURL: "wss://api.deepgram.com/v1/listen",
		},
		Backend: BackendConfig{
			Addr:       ":8787",
			ChunkDelay: 150 * time.Millisecond,
		},
		Schema: DefaultSchema(),
	}
}

// Load starts from the defaults, overlays the YAML file at path when path is
// not empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Endpoint = envStr("DRAFTSYNC_ENDPOINT", c.Endpoint)
	c.Policy = syncstore.InputPolicy(envStr("DRAFTSYNC_POLICY", string(c.Policy)))
	c.IdleTimeout = envDuration("DRAFTSYNC_IDLE_TIMEOUT", c.IdleTimeout)
	c.DocID = envStr("DRAFTSYNC_DOC_ID", c.DocID)
	c.Guided = envBool("DRAFTSYNC_GUIDED", c.Guided)
	c.AutoSync = envBool("DRAFTSYNC_AUTO_SYNC", c.AutoSync)

	c.Autosave.Enabled = envBool("DRAFTSYNC_AUTOSAVE", c.Autosave.Enabled)
	c.Autosave.Path = envStr("DRAFTSYNC_AUTOSAVE_PATH", c.Autosave.Path)
	c.Autosave.Delay = envDuration("DRAFTSYNC_AUTOSAVE_DELAY", c.Autosave.Delay)

	c.Deepgram.APIKey = envStr("DEEPGRAM_API_KEY", c.Deepgram.APIKey)
	c.Deepgram.Model = envStr("DRAFTSYNC_DEEPGRAM_MODEL", c.Deepgram.Model)
	c.Deepgram.Language = envStr("DRAFTSYNC_DEEPGRAM_LANGUAGE", c.Deepgram.Language)
	c.Deepgram.ListenURL = envStr("DRAFTSYNC_DEEPGRAM_URL", c.Deepgram.ListenURL)

	c.Backend.Addr = envStr("DRAFTSYNC_BACKEND_ADDR", c.Backend.Addr)
	c.Backend.ChunkDelay = envDuration("DRAFTSYNC_BACKEND_CHUNK_DELAY", c.Backend.ChunkDelay)
}

func (c *Config) Validate() error {
	var errs error
	if c.Endpoint == "" {
		errs = errors.Join(errs, errors.New("endpoint is required"))
	}
	if !c.Policy.Valid() {
		errs = errors.Join(errs, fmt.Errorf("unknown policy %q", c.Policy))
	}
	if c.IdleTimeout < 0 {
		errs = errors.Join(errs, errors.New("idleTimeout must not be negative"))
	}
	if c.Autosave.Enabled && c.Autosave.Path == "" {
		errs = errors.Join(errs, errors.New("autosave.path is required when autosave is enabled"))
	}

	seen := map[string]bool{}
	for i, field := range c.Schema {
		switch {
		case field.ID == "":
			errs = errors.Join(errs, fmt.Errorf("schema field %d has no id", i))
		case seen[field.ID]:
			errs = errors.Join(errs, fmt.Errorf("schema field %q is declared twice", field.ID))
		}
		seen[field.ID] = true
	}
	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
