package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("VERIFIER_TIMEOUT", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("env = %q, want dev", cfg.Env)
	}
	if cfg.VerifierTimeout != 30*time.Second {
		t.Fatalf("verifier timeout = %v, want 30s", cfg.VerifierTimeout)
	}
	if len(cfg.CORSAllowOrigin) != 1 {
		t.Fatalf("cors origins = %v, want one default", cfg.CORSAllowOrigin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/kyc")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("VERIFIER_TIMEOUT", "10s")
	t.Setenv("VERIFIER_BASE_URL", "https://idv.example")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("env = %q, want production", cfg.Env)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.VerifierTimeout != 10*time.Second {
		t.Fatalf("verifier timeout = %v", cfg.VerifierTimeout)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("cors origins = %v", cfg.CORSAllowOrigin)
	}
	if cfg.VerifierBaseURL != "https://idv.example" {
		t.Fatalf("verifier base url = %q", cfg.VerifierBaseURL)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("VERIFIER_TIMEOUT", "soon")
	cfg := Load()
	if cfg.VerifierTimeout != 30*time.Second {
		t.Fatalf("verifier timeout = %v, want default on parse failure", cfg.VerifierTimeout)
	}
}
