package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/config"
)

func newSessionCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "x"}
	c.Flags().String("mode", config.SiteCheckIn, "")
	c.Flags().String("user", "", "")
	c.Flags().String("password", "", "")
	c.Flags().Bool("auto-confirm", false, "")
	for k, v := range flags {
		if err := c.Flags().Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	return c
}

func TestKioskOptions(t *testing.T) {
	opts, err := kioskOptions(newSessionCmd(t, map[string]string{"mode": "register", "auto-confirm": "true"}))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Site != config.SiteRegister || !opts.AutoConfirm {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := kioskOptions(newSessionCmd(t, map[string]string{"mode": "lobby"})); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if _, err := kioskOptions(newSessionCmd(t, map[string]string{"mode": "admin"})); err == nil {
		t.Fatalf("admin without user should fail")
	}
	opts, err = kioskOptions(newSessionCmd(t, map[string]string{"mode": "admin", "user": "u1", "password": "pw"}))
	if err != nil || opts.Admin.UserID != "u1" || opts.Admin.Password != "pw" {
		t.Fatalf("admin options: %+v %v", opts, err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadConfig_FlagAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facegate.json")
	if err := os.WriteFile(path, []byte(`{"api_base_url":"http://file/api/","log_level":"info"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDevice, "dir:/srv/replay")
	prevPath, prevLevel := cfgPath, logLevel
	t.Cleanup(func() { cfgPath, logLevel = prevPath, prevLevel })
	cfgPath, logLevel = path, "debug"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "http://file/api" {
		t.Fatalf("base url = %q", cfg.APIBaseURL)
	}
	if cfg.DeviceID != "dir:/srv/replay" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
