package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "admin_secret: admin\nlink_secret: link\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 2333 {
		t.Errorf("port = %d, want 2333", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default env should be development")
	}
	if cfg.ArchiveIndexKey != "archive:index" {
		t.Errorf("archive index key = %q", cfg.ArchiveIndexKey)
	}
	if !strings.Contains(cfg.Captcha.VerifyURL, "turnstile") {
		t.Errorf("captcha verify url = %q", cfg.Captcha.VerifyURL)
	}
	if cfg.Site.BaseURL != "http://localhost:2333" {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("NB_ADMIN_SECRET", "admin-from-env")
	t.Setenv("NB_LINK_SECRET", "link-from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminSecret != "admin-from-env" || cfg.LinkSecret != "link-from-env" {
		t.Fatalf("secrets = %q / %q, want env values", cfg.AdminSecret, cfg.LinkSecret)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("NB_ADMIN_SECRET", "")
	t.Setenv("NB_LINK_SECRET", "")

	path := writeConfig(t, "port: 8080\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load succeeded without secrets")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("NB_ADMIN_SECRET", "env-wins")
	path := writeConfig(t, "admin_secret: file-value\nlink_secret: link\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminSecret != "env-wins" {
		t.Fatalf("admin secret = %q, want env override", cfg.AdminSecret)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "admin_secret: a\nlink_secret: l\nnot_a_real_key: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unknown config key")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, "admin_secret: a\nlink_secret: l\nport: 70000\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an out-of-range port")
	}
}

func TestDatabaseDSNValue(t *testing.T) {
	c := DatabaseRuntimeConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "newsbrief",
		Password: "pw",
		Name:     "newsletter",
	}
	dsn := c.DSNValue()
	if !strings.HasPrefix(dsn, "newsbrief:pw@tcp(db.internal:3307)/newsletter?") {
		t.Fatalf("dsn = %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn missing parseTime: %q", dsn)
	}

	explicit := DatabaseRuntimeConfig{DSN: "user@tcp(1.2.3.4:3306)/x"}
	if got := explicit.DSNValue(); got != "user@tcp(1.2.3.4:3306)/x" {
		t.Fatalf("explicit dsn = %q", got)
	}
}

func TestRedisURLValue(t *testing.T) {
	c := RedisRuntimeConfig{Host: "cache.internal", Port: 6380, Password: "pw", DB: 2}
	got := c.URLValue()
	if !strings.HasPrefix(got, "redis://") || !strings.Contains(got, "cache.internal:6380") || !strings.HasSuffix(got, "/2") {
		t.Fatalf("redis url = %q", got)
	}

	bare := RedisRuntimeConfig{URL: "localhost:6379"}
	if got := bare.URLValue(); got != "redis://localhost:6379" {
		t.Fatalf("bare url = %q", got)
	}

	tls := RedisRuntimeConfig{URL: "rediss://remote:6379"}
	if got := tls.URLValue(); got != "rediss://remote:6379" {
		t.Fatalf("tls url = %q", got)
	}
}
