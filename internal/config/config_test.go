package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"general": {"customerName": "Alice", "logLevel": "debug"},
		"ai": {"proxyBaseUrl": "http://proxy:8787", "maxTokens": 2048},
		"connect": {"region": "eu-west-1", "authApiUrl": "http://auth"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.CustomerName != "Alice" {
		t.Fatalf("customerName = %q", cfg.General.CustomerName)
	}
	if cfg.AI.MaxTokens != 2048 {
		t.Fatalf("maxTokens = %d", cfg.AI.MaxTokens)
	}
	// Unset fields keep their defaults.
	if cfg.AI.PrimaryProvider != "claude" || cfg.AI.FallbackProvider != "openai" {
		t.Fatalf("providers = %q/%q", cfg.AI.PrimaryProvider, cfg.AI.FallbackProvider)
	}
	if cfg.Connect.Region != "eu-west-1" {
		t.Fatalf("region = %q", cfg.Connect.Region)
	}
	if cfg.Connect.HeartbeatIntervalSeconds != 30 {
		t.Fatalf("heartbeat = %d", cfg.Connect.HeartbeatIntervalSeconds)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
general:
  customerName: Bob
ai:
  proxyBaseUrl: http://proxy:8787
connect:
  region: ap-southeast-2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.CustomerName != "Bob" {
		t.Fatalf("customerName = %q", cfg.General.CustomerName)
	}
	if cfg.Connect.Region != "ap-southeast-2" {
		t.Fatalf("region = %q", cfg.Connect.Region)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PROXY_URL", "http://from-env:9000")
	path := writeTemp(t, "config.json", `{
		"ai": {"proxyBaseUrl": "${TEST_PROXY_URL}"},
		"connect": {"region": "${TEST_REGION:-us-west-2}"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AI.ProxyBaseURL != "http://from-env:9000" {
		t.Fatalf("proxyBaseUrl = %q", cfg.AI.ProxyBaseURL)
	}
	if cfg.Connect.Region != "us-west-2" {
		t.Fatalf("default not applied: %q", cfg.Connect.Region)
	}
}

func TestExpandEnvVars_UnsetWithoutDefaultKept(t *testing.T) {
	got := ExpandEnvVars("url: ${DEFINITELY_NOT_SET_12345}")
	if got != "url: ${DEFINITELY_NOT_SET_12345}" {
		t.Fatalf("got %q", got)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.General.CustomerName = ""
	cfg.AI.ProxyBaseURL = ""
	cfg.AI.MaxTokens = 0
	cfg.Connect.HeartbeatIntervalSeconds = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"customerName", "proxyBaseUrl", "maxTokens", "heartbeatIntervalSeconds"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %q: %v", want, err)
		}
	}
}

func TestValidate_ProvidersMustDiffer(t *testing.T) {
	cfg := Defaults()
	cfg.AI.FallbackProvider = cfg.AI.PrimaryProvider
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for identical providers")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := Defaults()
	cfg.General.CustomerName = "Carol"
	cfg.Connect.AuthAPIURL = "http://auth.example"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.CustomerName != "Carol" || loaded.Connect.AuthAPIURL != "http://auth.example" {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
}
