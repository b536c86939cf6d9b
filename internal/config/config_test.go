package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Database.MinConns != 2 || cfg.Database.MaxConns != 20 {
		t.Fatalf("pool sizes = %d/%d", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.RetryAttempts != 5 {
		t.Fatalf("retry attempts = %d", cfg.Database.RetryAttempts)
	}
	if cfg.Lifecycle.PendingAfter.Std() != 72*time.Hour {
		t.Fatalf("pending_after = %s", cfg.Lifecycle.PendingAfter.Std())
	}
	if cfg.Lifecycle.OmittedAfter.Std() != 144*time.Hour {
		t.Fatalf("omitted_after = %s", cfg.Lifecycle.OmittedAfter.Std())
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
server:
  addr: ":9000"
database:
  url: postgres://localhost/corpdesk
  max_conns: 5
  command_timeout: 10s
lifecycle:
  pending_after: 24h
  omitted_after: 48h
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Database.MaxConns != 5 {
		t.Fatalf("max_conns = %d", cfg.Database.MaxConns)
	}
	if cfg.Database.CommandTimeout.Std() != 10*time.Second {
		t.Fatalf("command_timeout = %s", cfg.Database.CommandTimeout.Std())
	}
	if cfg.Database.MinConns != 2 {
		t.Fatal("unset fields must keep defaults")
	}
	if cfg.Lifecycle.PendingAfter.Std() != 24*time.Hour {
		t.Fatalf("pending_after = %s", cfg.Lifecycle.PendingAfter.Std())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"min over max": `
database:
  min_conns: 10
  max_conns: 5
`,
		"inverted thresholds": `
lifecycle:
  pending_after: 96h
  omitted_after: 72h
`,
		"bad duration": `
database:
  command_timeout: soon
`,
		"bad log format": `
log:
  format: xml
`,
	}
	for name, raw := range cases {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "corpdesk.yml"))
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("expected defaults, got addr %s", cfg.Server.Addr)
	}
}
