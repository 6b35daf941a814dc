// Package config persists the deploy tools' durable local state: the server
// base URL and the bearer API key obtained by `plugin-upload init`.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
	"github.com/zalando/go-keyring"
)

// keyringService is the service name used for OS keychain entries.
const keyringService = "arrival-tools"

// keyringMarker in the APIKey field means the real key lives in the OS
// keychain, keyed by the server host.
const keyringMarker = "keyring"

// Config is the durable local state, overwritten on each successful init.
type Config struct {
	Server string `json:"server"`
	APIKey string `json:"apiKey"`
}

// ResolvePath returns the config file location: the ARRIVAL_CONFIG env var
// when set, otherwise config.json next to the executable.
func ResolvePath() string {
	if p := os.Getenv("ARRIVAL_CONFIG"); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(filepath.Dir(exe), "config.json")
}

// Load reads and parses the config file. The file is parsed as JSON5 so a
// hand-edited file with comments or trailing commas still loads. A keyring
// marker is resolved to the real key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no config at %s (run `plugin-upload init` first)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server == "" {
		return nil, fmt.Errorf("config %s has no server", path)
	}

	if cfg.APIKey == keyringMarker {
		key, err := keyring.Get(keyringService, keyringUser(cfg.Server))
		if err != nil {
			return nil, fmt.Errorf("read api key from keyring: %w", err)
		}
		cfg.APIKey = key
	}

	return cfg, nil
}

// Save writes the config file (0600). With useKeyring the API key goes into
// the OS keychain and only a marker is written to disk.
func Save(path string, cfg *Config, useKeyring bool) error {
	onDisk := *cfg
	if useKeyring {
		if err := keyring.Set(keyringService, keyringUser(cfg.Server), cfg.APIKey); err != nil {
			return fmt.Errorf("store api key in keyring: %w", err)
		}
		onDisk.APIKey = keyringMarker
	}

	data, err := json.MarshalIndent(&onDisk, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// keyringUser derives the keychain account name from the server URL host.
func keyringUser(server string) string {
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		return u.Host
	}
	return server
}
