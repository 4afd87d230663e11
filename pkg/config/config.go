package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

const (
	configDirName      = "borderless"
	configFileName     = "config.json"
	linksFileName      = "links"
	defaultKeyFileName = "private_key.pem"
)

// Config is the optional per-user configuration file.
// Everything in it can also be supplied per invocation; the file only
// provides defaults.
type Config struct {
	Author     string `json:"author,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// ConfigDir returns the directory borderless keeps its configuration in.
// Resolution order: BORDERLESS_CONFIG_HOME, then XDG_CONFIG_HOME, then
// ~/.config.
func (s State) ConfigDir() string {
	if dir := s.Env[EnvBorderlessConfigHome]; dir != "" {
		return dir
	}
	if dir := s.Env[EnvXdgConfigHome]; dir != "" {
		return filepath.Join(dir, configDirName)
	}
	return filepath.Join(s.HomeDirectory, ".config", configDirName)
}

// ConfigFilePath returns the path of the per-user configuration file.
func (s State) ConfigFilePath() string {
	return filepath.Join(s.ConfigDir(), configFileName)
}

// DataDir returns the directory borderless keeps user data (the link
// store) in. BORDERLESS_CONFIG_HOME keeps everything in one place when
// set; otherwise resolution follows XDG_DATA_HOME, then ~/.local/share.
func (s State) DataDir() string {
	if dir := s.Env[EnvBorderlessConfigHome]; dir != "" {
		return dir
	}
	if dir := s.Env[EnvXdgDataHome]; dir != "" {
		return filepath.Join(dir, configDirName)
	}
	return filepath.Join(s.HomeDirectory, ".local", "share", configDirName)
}

// LinksPath returns the path of the link store file.
func (s State) LinksPath() string {
	return filepath.Join(s.DataDir(), linksFileName)
}

// LoadConfig reads the per-user configuration file.
// A missing file yields a zero config.
//
// Errors:
//
//    - borderless-error-io -- when the config file exists but cannot be read
//    - borderless-error-serialization -- when the config file cannot be parsed
func LoadConfig(s State) (Config, error) {
	path := s.ConfigFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, bpapi.ErrorIo("reading config file", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, bpapi.ErrorSerialization("parsing config file", err)
	}
	return cfg, nil
}

// ResolvePrivateKeyPath picks the signing key path for an invocation.
// Resolution order: the --private-key flag, then BORDERLESS_PRIVATE_KEY,
// then the config file, then the default location in the config directory.
// The configured result reports whether the path was set explicitly by
// one of the first three; a missing key file at a configured path is a
// hard failure for callers, while the default location is merely probed.
func ResolvePrivateKeyPath(flagValue string, s State, cfg Config) (path string, configured bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if env := s.Env[EnvBorderlessPrivateKey]; env != "" {
		return env, true
	}
	if cfg.PrivateKey != "" {
		return cfg.PrivateKey, true
	}
	return filepath.Join(s.ConfigDir(), defaultKeyFileName), false
}
