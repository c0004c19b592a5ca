package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q, want offline", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %q", cfg.DBDriver)
	}
	if cfg.AttemptGraceSeconds != 30 {
		t.Fatalf("grace = %d", cfg.AttemptGraceSeconds)
	}
	if cfg.ExpirySweepSpec != "@every 1m" {
		t.Fatalf("sweep spec = %q", cfg.ExpirySweepSpec)
	}
}

func TestOnlineModeRequiresSecret(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("online mode without a secret must fail")
	}

	t.Setenv("AUTH_HMAC_SECRET", "deployed-secret")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.AuthSecret != "deployed-secret" {
		t.Fatalf("secret not taken from environment")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ATTEMPT_GRACE_SECONDS", "120")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.AttemptGraceSeconds != 120 {
		t.Fatalf("grace = %d, want 120", cfg.AttemptGraceSeconds)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("origins = %v", cfg.CORSOrigins)
	}
}
