package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =nokey,tenant=bean")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "bean" {
		t.Fatalf("unexpected headers: %#v", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(envEndpoint, "collector:4318")
	t.Setenv(envInsecure, "false")
	t.Setenv(envSampleRatio, "0.25")
	t.Setenv(envHeaders, "x=1")
	cfg := ConfigFromEnv("beand", "test")
	if !cfg.Enabled() || cfg.Insecure || cfg.SampleRatio != 0.25 || cfg.Headers["x"] != "1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv(envSampleRatio, "7")
	if cfg := ConfigFromEnv("beand", ""); cfg.SampleRatio != 1 {
		t.Fatalf("out of range ratio accepted: %v", cfg.SampleRatio)
	}
}

func TestInitRequiresEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Config{ServiceName: "beand"}); err == nil {
		t.Fatalf("expected missing endpoint error")
	}
	if _, err := Init(context.Background(), Config{Endpoint: "x:4318"}); err == nil {
		t.Fatalf("expected missing service error")
	}
}
