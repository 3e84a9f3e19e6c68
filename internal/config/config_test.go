package config

import (
	"testing"
	"time"
)

func clearProxmoxEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROXMOX_HOST", "PROXMOX_USER", "PROXMOX_PASSWORD",
		"PROXMOX_TOKEN_NAME", "PROXMOX_TOKEN_VALUE", "PROXMOX_FINGERPRINT",
		"PROXMOX_VERIFY_SSL", "PROXMOX_ALLOW_DANGEROUS", "PROXMOX_TIMEOUT",
		"TRANSPORT", "HOST", "PORT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearProxmoxEnv(t)
	t.Setenv("PROXMOX_HOST", "pve.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Host != "pve.example.com" {
		t.Errorf("unexpected host %q", cfg.Host)
	}
	if !cfg.VerifySSL {
		t.Error("VerifySSL should default to true")
	}
	if cfg.Transport != "sse" || cfg.ListenHost != "0.0.0.0" || cfg.Port != 8051 {
		t.Errorf("unexpected serving defaults: %s %s:%d", cfg.Transport, cfg.ListenHost, cfg.Port)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected log level %q", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearProxmoxEnv(t)
	t.Setenv("PROXMOX_HOST", "pve.example.com")
	t.Setenv("PROXMOX_VERIFY_SSL", "false")
	t.Setenv("PROXMOX_ALLOW_DANGEROUS", "true")
	t.Setenv("PROXMOX_TIMEOUT", "90")
	t.Setenv("TRANSPORT", "STDIO")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VerifySSL {
		t.Error("VerifySSL should be false")
	}
	if cfg.AllowDangerousEnv != "true" {
		t.Errorf("unexpected AllowDangerousEnv %q", cfg.AllowDangerousEnv)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.Transport != "stdio" {
		t.Errorf("transport should be lowercased, got %q", cfg.Transport)
	}
	if cfg.ListenHost != "127.0.0.1" || cfg.Port != 9000 {
		t.Errorf("unexpected listen %s:%d", cfg.ListenHost, cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("unexpected log level %q", cfg.LogLevel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearProxmoxEnv(t)
	t.Setenv("PROXMOX_HOST", "pve.example.com")
	t.Setenv("PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid PORT")
	}

	t.Setenv("PORT", "8051")
	t.Setenv("PROXMOX_TIMEOUT", "-3")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid PROXMOX_TIMEOUT")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Host:      "pve.example.com",
			User:      "root@pam",
			Password:  "secret",
			Transport: "sse",
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing host")
	}

	cfg = base()
	cfg.User = ""
	cfg.Password = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when no credentials are set")
	}

	cfg = base()
	cfg.User = ""
	cfg.Password = ""
	cfg.TokenName = "monitor@pve!mcp"
	cfg.TokenValue = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("token credentials rejected: %v", err)
	}

	cfg = base()
	cfg.Transport = "websocket"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported transport")
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"false", true, false},
		{"0", true, false},
		{"f", true, false},
		{"no", true, false},
		{"off", true, false},
		{"true", false, true},
		{"1", false, true},
		{"TRUE", false, true},
		{"  yes ", false, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := parseBool(tt.value, tt.def); got != tt.want {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}
