package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and ConfigDir.
const FileName = "probenet.yaml"

// Load returns the defaults overlaid with the YAML file at path. An empty
// path searches the working directory and then ConfigDir; finding nothing is
// not an error. Command-line overrides are layered on afterwards by Flags.Apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range []string{FileName, filepath.Join(ConfigDir(), FileName)} {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// ConfigDir is the per-user config directory for the platform.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "ProbeNet")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ProbeNet")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "probenet")
	}
	return filepath.Join(home, ".config", "probenet")
}

// loadFromFile decodes path over cfg. Unknown keys are rejected so a typo in
// a bounce factor name does not silently fall back to the default.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes the config to ConfigDir, where Load will find it.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), FileName))
}

// SaveTo writes the config as YAML, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
