package bpapp_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	bpapp "github.com/borderless-technologies/borderless-cli/app"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/config"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/packager"
)

// run executes the CLI with fresh output buffers.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	bpapp.App.Writer = &out
	bpapp.App.ErrWriter = &errOut
	err = bpapp.App.Run(append([]string{"borderless"}, args...))
	return out.String(), errOut.String(), err
}

// setupConfigHome points the CLI at a fresh config directory containing a
// signing key and a config file referencing it.
func setupConfigHome(t *testing.T) string {
	t.Helper()
	// Registered before the Setenv calls so it runs after their restores
	// and later tests see the real environment again.
	t.Cleanup(func() { config.ReloadGlobalState() })
	cfgDir := t.TempDir()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	qt.Assert(t, err, qt.IsNil)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	qt.Assert(t, err, qt.IsNil)
	keyPath := filepath.Join(cfgDir, "private_key.pem")
	keyPem := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	qt.Assert(t, os.WriteFile(keyPath, keyPem, 0600), qt.IsNil)

	cfg := config.Config{Author: "Dev <dev@example.org>", PrivateKey: keyPath}
	serial, err := json.Marshal(cfg)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, os.WriteFile(filepath.Join(cfgDir, "config.json"), serial, 0644), qt.IsNil)

	t.Setenv(config.EnvBorderlessConfigHome, cfgDir)
	qt.Assert(t, config.ReloadGlobalState(), qt.IsNil)
	return cfgDir
}

func TestInitPackMergeRoundTrip(t *testing.T) {
	setupConfigHome(t)
	workDir := t.TempDir()
	projDir := filepath.Join(workDir, "flip-coin")

	// init scaffolds the project.
	_, _, err := run(t, "init", "--kind", "contract", projDir)
	qt.Assert(t, err, qt.IsNil)

	m, err := dab.ManifestFromFile(os.DirFS(projDir), dab.MagicFilename_Manifest)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, m.Name, qt.Equals, bpapi.PackageName("flip-coin"))
	qt.Assert(t, m.Kind, qt.Equals, bpapi.PackageKind_Contract)
	qt.Assert(t, m.Meta.Authors, qt.DeepEquals, []string{"Dev <dev@example.org>"})

	stub, err := os.ReadFile(filepath.Join(projDir, "src", "lib.rs"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, bytes.Contains(stub, []byte("pub mod flip_coin")), qt.IsTrue)
	qt.Assert(t, bytes.Contains(stub, []byte("struct FlipCoin")), qt.IsTrue)

	// init refuses to scaffold over an existing directory.
	_, _, err = run(t, "init", projDir)
	qt.Assert(t, err, qt.IsNotNil)

	// pack builds a signed archive and a bundle document.
	archivePath := filepath.Join(workDir, "flip-coin.bpkg")
	_, _, err = run(t, "pack", "--output", archivePath, "--no-git-info", projDir)
	qt.Assert(t, err, qt.IsNil)

	archive, err := os.ReadFile(archivePath)
	qt.Assert(t, err, qt.IsNil)
	bundle, err := packager.Verify(bytes.NewReader(archive))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, bundle.Manifest.Name, qt.Equals, bpapi.PackageName("flip-coin"))
	qt.Assert(t, bundle.Ident, qt.IsNotNil)

	// merge injects the bundle into an introduction document.
	introPath := filepath.Join(workDir, "introduction.json")
	qt.Assert(t, os.WriteFile(introPath, []byte(`{"participants": [], "initial_state": {}}`), 0644), qt.IsNil)
	_, _, err = run(t, "merge", introPath, archivePath)
	qt.Assert(t, err, qt.IsNil)

	merged, err := os.ReadFile(introPath)
	qt.Assert(t, err, qt.IsNil)
	var intro map[string]json.RawMessage
	qt.Assert(t, json.Unmarshal(merged, &intro), qt.IsNil)
	qt.Assert(t, intro["package"], qt.Not(qt.IsNil))
	mergedBundle, err := dab.DecodeBundle(intro["package"])
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, mergedBundle.Manifest.Name, qt.Equals, bpapi.PackageName("flip-coin"))
}

func TestPackFailsOnMissingEntryPoint(t *testing.T) {
	setupConfigHome(t)
	workDir := t.TempDir()
	projDir := filepath.Join(workDir, "hollow")

	_, _, err := run(t, "init", "--kind", "agent", projDir)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, os.Remove(filepath.Join(projDir, "src", "lib.rs")), qt.IsNil)

	_, _, err = run(t, "pack", "--output", filepath.Join(workDir, "hollow.bpkg"), projDir)
	qt.Assert(t, err, qt.IsNotNil)
}

func TestPackFailsWhenConfiguredKeyIsMissing(t *testing.T) {
	setupConfigHome(t)
	workDir := t.TempDir()
	projDir := filepath.Join(workDir, "keyless")

	_, _, err := run(t, "init", "--kind", "contract", projDir)
	qt.Assert(t, err, qt.IsNil)

	// A key explicitly configured through the environment that does not
	// exist must fail the pack, not degrade to an unsigned archive.
	t.Setenv(config.EnvBorderlessPrivateKey, filepath.Join(workDir, "nonesuch.pem"))
	qt.Assert(t, config.ReloadGlobalState(), qt.IsNil)

	archivePath := filepath.Join(workDir, "keyless.bpkg")
	_, _, err = run(t, "pack", "--output", archivePath, "--no-git-info", projDir)
	qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeKeyNotFound)
	_, statErr := os.Stat(archivePath)
	qt.Assert(t, os.IsNotExist(statErr), qt.IsTrue)
}

func TestLinkCommands(t *testing.T) {
	setupConfigHome(t)

	_, _, err := run(t, "link", "add", "prod", "https://node.example.org")
	qt.Assert(t, err, qt.IsNil)

	// Duplicate names are refused unless --update is given.
	_, _, err = run(t, "link", "add", "prod", "https://other.example.org")
	qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeAlreadyExists)
	_, _, err = run(t, "link", "add", "--update", "--kind", "registry", "prod", "https://other.example.org")
	qt.Assert(t, err, qt.IsNil)

	out, _, err := run(t, "link", "ls")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Equals, "prod\tregistry\thttps://other.example.org\n")

	_, _, err = run(t, "link", "rm", "prod")
	qt.Assert(t, err, qt.IsNil)
	out, _, err = run(t, "link", "ls")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, out, qt.Equals, "")
}

func TestTemplateIntroductionWithPeers(t *testing.T) {
	setupConfigHome(t)
	outPath := filepath.Join(t.TempDir(), "introduction.json")

	_, _, err := run(t, "template", "introduction", "--peers", "n-1", "--peers", "n-2", "--output", outPath)
	qt.Assert(t, err, qt.IsNil)

	serial, err := os.ReadFile(outPath)
	qt.Assert(t, err, qt.IsNil)
	var doc map[string]json.RawMessage
	qt.Assert(t, json.Unmarshal(serial, &doc), qt.IsNil)
	var participants []string
	qt.Assert(t, json.Unmarshal(doc["participants"], &participants), qt.IsNil)
	qt.Assert(t, participants, qt.DeepEquals, []string{"n-1", "n-2"})
}
