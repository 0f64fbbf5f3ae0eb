package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// RemotesConfig is the on-disk list of server profiles, usually one per
// site office, and the name of the one in use.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

type Remote struct {
	URL      string `toml:"url"`
	GRPCAddr string `toml:"grpc_addr,omitempty"`
	Token    string `toml:"token,omitempty"`
	NATSURL  string `toml:"nats_url,omitempty"`
}

var errNoActiveRemote = errors.New("no active remote; specify a name or run 'gc remote use <name>'")

func (c *RemotesConfig) get(name string) (Remote, error) {
	r, ok := c.Remotes[name]
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not found", name)
	}
	return r, nil
}

func (c *RemotesConfig) drop(name string) error {
	if _, err := c.get(name); err != nil {
		return err
	}
	delete(c.Remotes, name)
	if c.Active == name {
		c.Active = ""
	}
	return nil
}

func (c *RemotesConfig) activate(name string) error {
	if _, err := c.get(name); err != nil {
		return err
	}
	c.Active = name
	return nil
}

// resolve returns name, or the active remote's name when name is empty.
func (c *RemotesConfig) resolve(name string) (string, Remote, error) {
	if name == "" {
		name = c.Active
	}
	if name == "" {
		return "", Remote{}, errNoActiveRemote
	}
	r, err := c.get(name)
	return name, r, err
}

// checkRemoteURL requires an absolute http(s) URL.
func checkRemoteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid remote URL %q: want http(s)://host[:port]", raw)
	}
	return nil
}

// remoteConfigPath is $GATECHECK_CONFIG_DIR/remotes.toml, defaulting to
// ~/.config/gatecheck. The directory is created 0700.
func remoteConfigPath() (string, error) {
	dir := os.Getenv("GATECHECK_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "gatecheck")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	cfg := RemotesConfig{Remotes: map[string]Remote{}}
	path, err := remoteConfigPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

// saveRemotesConfig replaces the profile file, keeping it private to the
// user since it may hold tokens.
func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".remotes-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding remotes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// updateRemotes loads the profile file, applies fn and saves the result.
func updateRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

var activeRemote = sync.OnceValue(func() Remote {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return Remote{}
	}
	_, r, _ := cfg.resolve("")
	return r
})

func activeRemoteURL() string      { return activeRemote().URL }
func activeRemoteGRPCAddr() string { return activeRemote().GRPCAddr }
func activeRemoteToken() string    { return activeRemote().Token }
func activeRemoteNATSURL() string  { return activeRemote().NATSURL }

const tokenVisible = 8

// redactToken shows the first few characters of a token. Short form ends in
// "..."; long form stars out every hidden character.
func redactToken(token string, long bool) string {
	if len(token) <= tokenVisible {
		return token
	}
	if long {
		return token[:tokenVisible] + strings.Repeat("*", len(token)-tokenVisible)
	}
	return token[:tokenVisible] + "..."
}
