package config

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

func testState() State {
	return State{
		Env:           map[string]string{},
		HomeDirectory: "/home/someone",
	}
}

func TestConfigDirResolution(t *testing.T) {
	s := testState()
	qt.Assert(t, s.ConfigDir(), qt.Equals, "/home/someone/.config/borderless")

	s.Env[EnvXdgConfigHome] = "/home/someone/xdg"
	qt.Assert(t, s.ConfigDir(), qt.Equals, "/home/someone/xdg/borderless")

	s.Env[EnvBorderlessConfigHome] = "/etc/borderless"
	qt.Assert(t, s.ConfigDir(), qt.Equals, "/etc/borderless")
	qt.Assert(t, s.LinksPath(), qt.Equals, "/etc/borderless/links")
	qt.Assert(t, s.ConfigFilePath(), qt.Equals, "/etc/borderless/config.json")
}

func TestDataDirResolution(t *testing.T) {
	s := testState()
	qt.Assert(t, s.DataDir(), qt.Equals, "/home/someone/.local/share/borderless")
	qt.Assert(t, s.LinksPath(), qt.Equals, "/home/someone/.local/share/borderless/links")

	s.Env[EnvXdgDataHome] = "/home/someone/xdg-data"
	qt.Assert(t, s.DataDir(), qt.Equals, "/home/someone/xdg-data/borderless")

	s.Env[EnvBorderlessConfigHome] = "/etc/borderless"
	qt.Assert(t, s.DataDir(), qt.Equals, "/etc/borderless")
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing-file-is-zero-config", func(t *testing.T) {
		s := testState()
		s.Env[EnvBorderlessConfigHome] = filepath.Join(t.TempDir(), "nonesuch")
		cfg, err := LoadConfig(s)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, cfg, qt.Equals, Config{})
	})
	t.Run("reads-values", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"author": "dev@example.org", "privateKey": "/keys/me.pem"}`
		qt.Assert(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644), qt.IsNil)
		s := testState()
		s.Env[EnvBorderlessConfigHome] = dir
		cfg, err := LoadConfig(s)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, cfg, qt.Equals, Config{Author: "dev@example.org", PrivateKey: "/keys/me.pem"})
	})
	t.Run("garbage-file", func(t *testing.T) {
		dir := t.TempDir()
		qt.Assert(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("nope"), 0644), qt.IsNil)
		s := testState()
		s.Env[EnvBorderlessConfigHome] = dir
		_, err := LoadConfig(s)
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeSerialization)
	})
}

func TestResolvePrivateKeyPath(t *testing.T) {
	s := testState()
	s.Env[EnvBorderlessConfigHome] = "/etc/borderless"

	path, configured := ResolvePrivateKeyPath("", s, Config{})
	qt.Assert(t, path, qt.Equals, "/etc/borderless/private_key.pem")
	qt.Assert(t, configured, qt.IsFalse)

	path, configured = ResolvePrivateKeyPath("", s, Config{PrivateKey: "/keys/cfg.pem"})
	qt.Assert(t, path, qt.Equals, "/keys/cfg.pem")
	qt.Assert(t, configured, qt.IsTrue)

	s.Env[EnvBorderlessPrivateKey] = "/keys/env.pem"
	path, configured = ResolvePrivateKeyPath("", s, Config{PrivateKey: "/keys/cfg.pem"})
	qt.Assert(t, path, qt.Equals, "/keys/env.pem")
	qt.Assert(t, configured, qt.IsTrue)

	path, configured = ResolvePrivateKeyPath("/keys/flag.pem", s, Config{})
	qt.Assert(t, path, qt.Equals, "/keys/flag.pem")
	qt.Assert(t, configured, qt.IsTrue)
}
