package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

// Test 1: SetConfig persists TOML that a reopened repository reads back.
func TestConfig_SetPersists(t *testing.T) {
	r := newTestRepo(t)

	if err := r.SetConfig("user.name", "Ada Lovelace"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := r.SetConfig("user.email", "ada@example.com"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := r.SetConfig("core.cache_size", "16"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(r.GitDir, "config"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "[user]") || !strings.Contains(string(data), `name = "Ada Lovelace"`) {
		t.Errorf("config file:\n%s", data)
	}

	r2, err := Open(r.RootDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for key, want := range map[string]string{
		"user.name":       "Ada Lovelace",
		"user.email":      "ada@example.com",
		"core.cache_size": "16",
		"core.timezone":   "",
	} {
		got, err := r2.Config.Get(key)
		if err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}
		if got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
}

// Test 2: unknown keys and bad values are rejected.
func TestConfig_Validation(t *testing.T) {
	r := newTestRepo(t)

	if err := r.SetConfig("user.nickname", "x"); err == nil {
		t.Error("unknown key accepted")
	}
	if err := r.SetConfig("core.cache_size", "-1"); err == nil {
		t.Error("negative cache size accepted")
	}
	if err := r.SetConfig("core.timezone", "Not/AZone"); err == nil {
		t.Error("bad timezone accepted")
	}
	if _, err := r.Config.Get("nope"); err == nil {
		t.Error("Get of unknown key succeeded")
	}
}

// Test 3: a config file with an unknown key fails to open.
func TestConfig_UnknownKeyInFile(t *testing.T) {
	r := newTestRepo(t)
	path := filepath.Join(r.GitDir, "config")
	if err := os.WriteFile(path, []byte("[user]\nname = \"x\"\nshoe_size = 9\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Open(r.RootDir); err == nil {
		t.Fatal("Open accepted unknown config key")
	}
}

// Test 4: Signature requires an identity and applies the configured zone.
func TestConfig_Signature(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.Signature(time.Now()); !errors.Is(err, ErrIdentityUnset) {
		t.Fatalf("Signature without identity = %v, want ErrIdentityUnset", err)
	}

	cfg.User = UserConfig{Name: "terassyi", Email: "iscale821@gmail.com"}
	cfg.Core.Timezone = "Asia/Tokyo"
	sig, err := cfg.Signature(time.Unix(1616834749, 0))
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	want := "terassyi <iscale821@gmail.com> 1616834749 +0900"
	if sig.String() != want {
		t.Errorf("Signature = %q, want %q", sig.String(), want)
	}
}

// Test 5: ConfigKeys is sorted and complete.
func TestConfigKeys(t *testing.T) {
	got := strings.Join(ConfigKeys(), ",")
	want := "core.cache_size,core.timezone,user.email,user.name"
	if got != want {
		t.Errorf("ConfigKeys = %s, want %s", got, want)
	}
}
