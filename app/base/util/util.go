package util

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/config"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/keys"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
)

// OpenLinkStore opens the user's link store file.
//
// Errors:
//
//    - borderless-error-serialization -- when process state cannot be copied
//    - borderless-error-linkstore -- when the link store cannot be read
func OpenLinkStore() (*linkstore.Store, error) {
	state, err := config.NewState()
	if err != nil {
		return nil, err
	}
	return linkstore.Open(state.LinksPath())
}

// ResolveSigningKey loads the signing key for this invocation, honoring
// the --private-key flag, the environment, and the config file, in that
// order. The configured result reports whether one of those explicitly
// named the key path (as opposed to probing the default location); it is
// valid even when an error is returned.
//
// Errors:
//
//    - borderless-error-serialization -- when process state cannot be copied
//    - borderless-error-io -- when the config file exists but cannot be read
//    - borderless-error-key-not-found -- when the key file cannot be read
//    - borderless-error-key-invalid -- when the key material cannot be parsed
func ResolveSigningKey(c *cli.Context) (key ed25519.PrivateKey, path string, configured bool, err error) {
	state, err := config.NewState()
	if err != nil {
		return nil, "", false, err
	}
	cfg, err := config.LoadConfig(state)
	if err != nil {
		return nil, "", false, err
	}
	path, configured = config.ResolvePrivateKeyPath(c.String("private-key"), state, cfg)
	key, err = keys.LoadSigningKey(path)
	if err != nil {
		return nil, path, configured, err
	}
	return key, path, configured, nil
}

// LoadUserConfig reads the per-user config file.
//
// Errors:
//
//    - borderless-error-serialization -- when process state cannot be copied or the file cannot be parsed
//    - borderless-error-io -- when the config file exists but cannot be read
func LoadUserConfig() (config.Config, error) {
	state, err := config.NewState()
	if err != nil {
		return config.Config{}, err
	}
	return config.LoadConfig(state)
}

// FindProject locates the project manifest for a command, starting at
// searchPath (or the working directory when empty) and walking up.
// The manifest and the absolute project directory are returned.
//
// Errors:
//
//    - borderless-error-serialization -- when process state cannot be copied
//    - borderless-error-invalid-project -- when no manifest can be found
//    - borderless-error-searching-filesystem -- when the search fails
func FindProject(searchPath string) (bpapi.Manifest, string, error) {
	state, err := config.NewState()
	if err != nil {
		return bpapi.Manifest{}, "", err
	}
	abs := canonicalizePath(state.WorkingDirectory, searchPath)
	m, foundDir, _, err := dab.FindManifest(os.DirFS("/"), "", strings.TrimPrefix(abs, "/"))
	if err != nil {
		return bpapi.Manifest{}, "", err
	}
	if m == nil {
		return bpapi.Manifest{}, "", bpapi.ErrorInvalidProject(abs,
			fmt.Sprintf("no %s found here or in any parent directory", dab.MagicFilename_Manifest))
	}
	return *m, "/" + foundDir, nil
}

// canonicalize is like filepath.Abs but assumes we already have a working directory path which is absolute
func canonicalizePath(pwd, path string) string {
	if path == "" {
		return filepath.Clean(pwd)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if !filepath.IsAbs(pwd) {
		panic(fmt.Sprintf("working directory must be an absolute path: %q", pwd))
	}
	return filepath.Join(pwd, path)
}
