package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	p := writeConfig(t, `
version: "1.0"
mode: dev
database:
  host: localhost
  user: verein
  password: from-file
  dbname: verein
mail:
  user: kasse@verein.de
`)
	t.Setenv("VEREIN_DB_PASSWORD", "from-env")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DB.Password != "from-env" {
		t.Errorf("password = %q, want env override", cfg.DB.Password)
	}
	if cfg.DB.Port != 3306 || cfg.Mail.Port != 2525 || cfg.Server.Addr != ":8443" {
		t.Errorf("defaults = %d %d %q", cfg.DB.Port, cfg.Mail.Port, cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Mail.From != "kasse@verein.de" {
		t.Errorf("ttl = %v from = %q", cfg.Auth.TokenTTL, cfg.Mail.From)
	}
	if cfg.TLSEnabled() {
		t.Error("tls enabled without certificate")
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := map[string]string{
		"bad mode":        "mode: test\ndatabase: {host: h, dbname: d}\n",
		"missing db":      "mode: dev\n",
		"release no key":  "mode: release\ndatabase: {host: h, dbname: d}\nauth: {jwt_secret: short}\n",
		"not yaml at all": "mode: [dev\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Error("config accepted")
			}
		})
	}
}

func TestInClause(t *testing.T) {
	in, args := InClause([]int64{4, 8, 15})
	if in != "?,?,?" || len(args) != 3 || args[2] != int64(15) {
		t.Errorf("InClause = %q %v", in, args)
	}
	if in, args := InClause(nil); in != "NULL" || args != nil {
		t.Errorf("empty InClause = %q %v", in, args)
	}
}
