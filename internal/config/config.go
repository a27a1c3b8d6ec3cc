// Package config loads the tool configuration: where the agent keeps its
// database, where the client config and launcher live, and the timing
// knobs for watching and launching. Values missing from the file fall
// back to per-OS defaults matching the desktop client's install layout.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/engine"
)

// Poll and debounce defaults. The poll intervals mirror the cadence the
// desktop client's own data can change at: the agent rewrites product.db
// in bursts, the client config changes on every interaction.
const (
	DefaultDebounce   = 500 * time.Millisecond
	DefaultDBPoll     = 2500 * time.Millisecond
	DefaultConfigPoll = time.Second
)

// Duration is a time.Duration that reads from YAML in time.ParseDuration
// form ("500ms", "1m30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the tool configuration.
type Config struct {
	// AgentDir is the agent's data directory, holding product.db and the
	// uninstaller binary.
	AgentDir string `yaml:"agent_dir"`

	// ClientConfigPath is the desktop client's JSON configuration file.
	ClientConfigPath string `yaml:"client_config"`

	// LauncherPath is the desktop client executable.
	LauncherPath string `yaml:"launcher"`

	// JournalPath is the transition journal database. Empty disables the
	// journal.
	JournalPath string `yaml:"journal"`

	// Debounce is the quiet period coalescing bursts of file changes.
	Debounce Duration `yaml:"debounce"`

	// DBPoll and ConfigPoll are the fallback poll intervals used when
	// filesystem notification is unavailable.
	DBPoll     Duration `yaml:"db_poll"`
	ConfigPoll Duration `yaml:"config_poll"`

	// WatchDelay and WatchInterval drive the running-watch on a launched
	// game.
	WatchDelay    Duration `yaml:"watch_delay"`
	WatchInterval Duration `yaml:"watch_interval"`

	// LaunchTimeout bounds the whole launch flow.
	LaunchTimeout Duration `yaml:"launch_timeout"`
}

// ProductDBPath returns the agent's product database file.
func (c *Config) ProductDBPath() string {
	if c.AgentDir == "" {
		return ""
	}
	return filepath.Join(c.AgentDir, "product.db")
}

// UninstallerPath returns the agent's uninstaller binary. Only windows
// installs ship one.
func (c *Config) UninstallerPath() string {
	if c.AgentDir == "" {
		return ""
	}
	return filepath.Join(c.AgentDir, "Blizzard Uninstaller.exe")
}

// Default returns the configuration for this machine before any file is
// applied.
func Default() *Config {
	return defaults(runtime.GOOS, os.Getenv)
}

// defaults is Default with the platform inputs injected.
func defaults(goos string, getenv func(string) string) *Config {
	c := &Config{
		Debounce:      Duration(DefaultDebounce),
		DBPoll:        Duration(DefaultDBPoll),
		ConfigPoll:    Duration(DefaultConfigPoll),
		WatchDelay:    Duration(engine.DefaultWatchDelay),
		WatchInterval: Duration(engine.DefaultWatchInterval),
		LaunchTimeout: Duration(client.DefaultLaunchTimeout),
	}
	switch goos {
	case "windows":
		c.AgentDir = filepath.Join(getenv("ALLUSERSPROFILE"), "Battle.net", "Agent")
		c.ClientConfigPath = filepath.Join(getenv("APPDATA"), "Battle.net", "Battle.net.config")
		c.LauncherPath = filepath.Join(getenv("ProgramFiles(x86)"), "Battle.net", "Battle.net.exe")
	case "darwin":
		c.AgentDir = filepath.Join("/Users", "Shared", "Battle.net", "Agent")
		c.ClientConfigPath = filepath.Join(getenv("HOME"), "Library", "Application Support", "Battle.net", "Battle.net.config")
		c.LauncherPath = filepath.Join("/Applications", "Battle.net.app", "Contents", "MacOS", "Battle.net")
	}
	// Other platforms have no client to find; paths must come from the
	// file.
	return c
}

// Load reads the YAML file at path and overlays it on the defaults. An
// empty path skips the file entirely. Unknown fields are rejected so
// typos fail loudly.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil // empty file, pure defaults
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
