// internal/config/loader_test.go
//
// Unit-tests for the layered loader: YAML base, env overlay, and vault:
// secret resolution.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", errors.New("missing secret " + ref)
	}
	return v, nil
}

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return root
}

func TestLoad_YAMLEnvAndDefaults(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:8080"
database:
  dsn: "formaly:%s@tcp(127.0.0.1:3306)/formaly?parseTime=true"
  password: "plain"
registry:
  timeout: 2s
`)
	t.Setenv("FORMALY_HTTP__LISTEN_ADDR", "0.0.0.0:9090")

	cfg, err := loadFrom(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != "0.0.0.0:9090" {
		t.Fatalf("env overlay not applied: %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Registry.Timeout != 2*time.Second {
		t.Fatalf("registry timeout = %v", cfg.Registry.Timeout)
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second || cfg.Forms.CacheSize != 256 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Paths.Root != root {
		t.Fatalf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if Get() != cfg {
		t.Fatalf("Get() did not return the cached config")
	}
}

func TestLoad_ResolvesVaultReferences(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:8080"
database:
  dsn: "formaly:%s@tcp(db:3306)/formaly"
  password: "vault:secret/formaly#db_password"
forms:
  csrf_key: "vault:secret/formaly#csrf_key"
`)
	res := fakeResolver{
		"secret/formaly#db_password": "s3cret",
		"secret/formaly#csrf_key":    "k",
	}

	cfg, err := loadFrom(context.Background(), root, res)
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Database.Password != "s3cret" || cfg.Forms.CSRFKey != "k" {
		t.Fatalf("secrets not resolved: %+v", cfg)
	}
}

func TestLoad_VaultReferenceWithoutResolver(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:8080"
database:
  dsn: "dsn"
  password: "vault:secret/formaly#db_password"
`)
	if _, err := loadFrom(context.Background(), root, nil); !errors.Is(err, errNoResolver) {
		t.Fatalf("err = %v, want errNoResolver", err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "not a host"
database:
  dsn: "dsn"
`)
	if _, err := loadFrom(context.Background(), root, nil); err == nil {
		t.Fatalf("expected validation error for bad listen_addr")
	}
}

func TestLoad_DSNNeedsPassword(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:8080"
database:
  dsn: "formaly:%s@tcp(db:3306)/formaly"
`)
	if _, err := loadFrom(context.Background(), root, nil); err == nil {
		t.Fatalf("expected error for DSN without password")
	}
}
