package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderGroq {
		t.Errorf("provider = %s, want groq default", cfg.Provider)
	}
	if cfg.TurnTimeoutSeconds != 5 {
		t.Errorf("turn timeout = %d, want 5", cfg.TurnTimeoutSeconds)
	}
	if cfg.Cache.Driver != CacheMemory {
		t.Errorf("cache driver = %s, want memory", cfg.Cache.Driver)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".voiceline.yml")
	data := []byte("provider: openai\nmodel: gpt-4o-mini\ncache:\n  driver: redis\n  redis_addr: localhost:6379\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Model != "gpt-4o-mini" {
		t.Errorf("provider/model = %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Cache.Driver != CacheRedis || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	// Untouched fields keep their defaults.
	if cfg.MaxReplyTokens != 150 {
		t.Errorf("max reply tokens = %d, want 150", cfg.MaxReplyTokens)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VOICELINE_MODEL", "llama3-70b-8192")
	t.Setenv("VOICELINE_CACHE__DRIVER", "redis")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "llama3-70b-8192" {
		t.Errorf("model = %s, want env override", cfg.Model)
	}
	if cfg.Cache.Driver != CacheRedis {
		t.Errorf("cache driver = %s, want redis from env", cfg.Cache.Driver)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.Provider = "mystery"
	if err := bad.Validate(); err == nil {
		t.Error("unknown provider accepted")
	}

	bad = DefaultConfig()
	bad.Cache.Driver = CacheRedis
	if err := bad.Validate(); err == nil {
		t.Error("redis driver without address accepted")
	}

	bad = DefaultConfig()
	bad.TurnTimeoutSeconds = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero turn timeout accepted")
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".voiceline.yml")

	cfg := DefaultConfig()
	cfg.Model = "llama3-70b-8192"
	cfg.Telephony.PublicURL = "https://agent.example.com"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "llama3-70b-8192" {
		t.Errorf("model = %s", loaded.Model)
	}
	if loaded.Telephony.PublicURL != "https://agent.example.com" {
		t.Errorf("public url = %s", loaded.Telephony.PublicURL)
	}
}
