package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Provider != "anthropic" {
		t.Fatalf("provider = %q", cfg.Provider)
	}
	if cfg.MaxIterations != 10 || cfg.MaxTokens != 4096 {
		t.Fatalf("limits = %d/%d", cfg.MaxIterations, cfg.MaxTokens)
	}
	if cfg.Thresholds.OvervaluedPE != 30 {
		t.Fatalf("overvalued pe = %v", cfg.Thresholds.OvervaluedPE)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FINSIGHT_PROVIDER", "fake")
	t.Setenv("FINSIGHT_MAX_ITERATIONS", "3")
	t.Setenv("FINSIGHT_REQUEST_TIMEOUT", "30s")
	t.Setenv("FINSIGHT_OVERVALUED_PE", "25.5")
	t.Setenv("FINSIGHT_TRACE_STDOUT", "true")

	cfg := FromEnv()
	if cfg.Provider != "fake" || cfg.MaxIterations != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
	if cfg.Thresholds.OvervaluedPE != 25.5 {
		t.Fatalf("overvalued pe = %v", cfg.Thresholds.OvervaluedPE)
	}
	if !cfg.TraceStdout {
		t.Fatal("trace stdout not set")
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FINSIGHT_MAX_ITERATIONS", "lots")
	t.Setenv("FINSIGHT_REQUEST_TIMEOUT", "soon")
	cfg := FromEnv()
	if cfg.MaxIterations != 10 || cfg.RequestTimeout != 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := FromEnv()
	cfg.MaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero iterations")
	}
	cfg = FromEnv()
	cfg.Provider = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty provider")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Config{LogLevel: "debug"}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level = %v", cfg.SlogLevel())
	}
	cfg.LogLevel = "mystery"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("fallback level = %v", cfg.SlogLevel())
	}
}
