package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draftsync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Policy != syncstore.PolicyExclusive || cfg.IdleTimeout != 30*time.Second || !cfg.AutoSync {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Schema) == 0 {
		t.Fatalf("expected the default schema")
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
endpoint: http://agent.internal/sync
policy: mixed
idleTimeout: 5s
autosave:
  enabled: false
deepgram:
  model: nova-2
schema:
  - id: title
    type: text
    required: true
`)
	t.Setenv("DRAFTSYNC_IDLE_TIMEOUT", "10s")
	t.Setenv("DEEPGRAM_API_KEY", "secret")
	t.Setenv("DRAFTSYNC_GUIDED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Endpoint != "http://agent.internal/sync" || cfg.Policy != syncstore.PolicyMixed {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.IdleTimeout != 10*time.Second {
		t.Fatalf("expected environment to override the file, got %s", cfg.IdleTimeout)
	}
	if cfg.Autosave.Enabled || cfg.Deepgram.Model != "nova-2" || cfg.Deepgram.Language != "en-US" {
		t.Fatalf("expected nested values merged over defaults, got %+v %+v", cfg.Autosave, cfg.Deepgram)
	}
	if cfg.Deepgram.APIKey != "secret" || !cfg.Guided {
		t.Fatalf("expected environment values, got key %q guided %v", cfg.Deepgram.APIKey, cfg.Guided)
	}
	if len(cfg.Schema) != 1 || cfg.Schema[0].ID != "title" || !cfg.Schema[0].Required {
		t.Fatalf("expected the file schema, got %+v", cfg.Schema)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name          string
		content       string
		expectedError string
	}{
		{name: "policy", content: "policy: shared\n", expectedError: `unknown policy "shared"`},
		{name: "duplicate field", content: "schema:\n  - id: a\n  - id: a\n", expectedError: `"a" is declared twice`},
		{name: "missing id", content: "schema:\n  - label: A\n", expectedError: "has no id"},
		{name: "yaml", content: "policy: [", expectedError: "failed to parse config"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, testCase.content))
			if err == nil || !strings.Contains(err.Error(), testCase.expectedError) {
				t.Fatalf("expected error containing %q, got %v", testCase.expectedError, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
