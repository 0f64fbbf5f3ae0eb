package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRemotes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "site-a",
		Remotes: map[string]Remote{
			"site-a": {URL: "https://gates.site-a.example", GRPCAddr: "gates.site-a.example:9090", Token: "tok_abc", NATSURL: "nats://site-a:4222"},
			"local":  {URL: "http://localhost:8080"},
		},
	}
	if err := saveRemotesConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "site-a" {
		t.Errorf("Active = %q, want %q", got.Active, "site-a")
	}
	if got.Remotes["site-a"] != in.Remotes["site-a"] {
		t.Errorf("site-a = %+v, want %+v", got.Remotes["site-a"], in.Remotes["site-a"])
	}
	if got.Remotes["local"].URL != "http://localhost:8080" {
		t.Errorf("local = %+v", got.Remotes["local"])
	}
}

func TestLoadRemotes_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || cfg.Remotes == nil || len(cfg.Remotes) != 0 {
		t.Errorf("expected empty config with non-nil map, got %+v", cfg)
	}
}

func TestSaveRemotes_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveRemotesConfig(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remoteConfigPath()
	for _, tc := range []struct {
		path string
		want os.FileMode
	}{
		{path, 0o600},
		{filepath.Dir(path), 0o700},
	} {
		info, err := os.Stat(tc.path)
		if err != nil {
			t.Fatalf("stat %s: %v", tc.path, err)
		}
		if got := info.Mode().Perm(); got != tc.want {
			t.Errorf("%s permissions = %04o, want %04o", tc.path, got, tc.want)
		}
	}
}

func TestRemoteCommands_Lifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	mustRun := func(fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}

	remoteAddCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	remoteRemoveCmd.SetOut(&buf)
	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"office", "http://office:8080"}) })
	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"office", "http://office:8080"}) })
	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"office"}) })

	cfg, _ := loadRemotesConfig()
	if cfg.Active != "office" || len(cfg.Remotes) != 1 {
		t.Fatalf("after add+use: %+v", cfg)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	mustRun(func() error { return remoteListCmd.RunE(remoteListCmd, nil) })
	if !strings.Contains(buf.String(), "* office") {
		t.Errorf("list missing active marker; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	mustRun(func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) })
	if out := buf.String(); !strings.Contains(out, "http://office:8080") || !strings.Contains(out, "(active)") {
		t.Errorf("show missing expected content; got:\n%s", out)
	}

	mustRun(func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"office"}) })
	cfg, _ = loadRemotesConfig()
	if _, ok := cfg.Remotes["office"]; ok || cfg.Active != "" {
		t.Errorf("after remove: %+v", cfg)
	}
}

func TestRemoteCommands_MaskToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := remoteAddCmd.Flags().Set("token", "tok_verylongsecret"); err != nil {
		t.Fatalf("set token flag: %v", err)
	}
	t.Cleanup(func() { _ = remoteAddCmd.Flags().Set("token", "") })

	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"site", "https://site.example"}); err != nil {
		t.Fatal(err)
	}
	if err := remoteUseCmd.RunE(remoteUseCmd, []string{"site"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	if err := remoteListCmd.RunE(remoteListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") || !strings.Contains(buf.String(), "tok_very...") {
		t.Errorf("list should show a truncated token; got:\n%s", buf.String())
	}

	buf.Reset()
	remoteShowCmd.SetOut(&buf)
	if err := remoteShowCmd.RunE(remoteShowCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") || !strings.Contains(buf.String(), "tok_very**********") {
		t.Errorf("show should mask the token; got:\n%s", buf.String())
	}
}

func TestRemoteCommands_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		fn   func() error
	}{
		{"use unknown", func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"ghost"}) }},
		{"remove unknown", func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"ghost"}) }},
		{"show no active", func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := tc.fn(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestRedactToken(t *testing.T) {
	for _, tc := range []struct {
		token       string
		short, long string
	}{
		{"", "", ""},
		{"short", "short", "short"},
		{"12345678", "12345678", "12345678"},
		{"123456789", "12345678...", "12345678*"},
	} {
		if got := redactToken(tc.token, false); got != tc.short {
			t.Errorf("redactToken(%q, false) = %q, want %q", tc.token, got, tc.short)
		}
		if got := redactToken(tc.token, true); got != tc.long {
			t.Errorf("redactToken(%q, true) = %q, want %q", tc.token, got, tc.long)
		}
	}
}

func TestCheckRemoteURL(t *testing.T) {
	for raw, ok := range map[string]bool{
		"http://office:8080":      true,
		"https://gates.example":   true,
		"office:8080":             false,
		"ftp://office":            false,
		"http://":                 false,
		"gates.example/v1/health": false,
	} {
		if err := checkRemoteURL(raw); (err == nil) != ok {
			t.Errorf("checkRemoteURL(%q) = %v, want ok=%v", raw, err, ok)
		}
	}
}

func TestRemotesConfig_Resolve(t *testing.T) {
	cfg := RemotesConfig{Active: "a", Remotes: map[string]Remote{"a": {URL: "http://a"}, "b": {URL: "http://b"}}}

	if name, r, err := cfg.resolve(""); err != nil || name != "a" || r.URL != "http://a" {
		t.Errorf("resolve active = %q %+v %v", name, r, err)
	}
	if name, r, err := cfg.resolve("b"); err != nil || name != "b" || r.URL != "http://b" {
		t.Errorf("resolve b = %q %+v %v", name, r, err)
	}
	if _, _, err := cfg.resolve("c"); err == nil {
		t.Error("resolve unknown: expected error")
	}

	if err := cfg.drop("a"); err != nil || cfg.Active != "" {
		t.Fatalf("drop active: err=%v active=%q", err, cfg.Active)
	}
	if _, _, err := cfg.resolve(""); err != errNoActiveRemote {
		t.Errorf("resolve with no active = %v, want errNoActiveRemote", err)
	}
}

func TestRemoteAdd_RejectsBadURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"office", "office:8080"}); err == nil {
		t.Fatal("expected error for URL without scheme")
	}
	cfg, _ := loadRemotesConfig()
	if len(cfg.Remotes) != 0 {
		t.Fatalf("bad remote was saved: %+v", cfg)
	}
}
