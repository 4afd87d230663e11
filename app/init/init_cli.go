package initcli

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
)

//go:embed templates
var templates embed.FS

func init() {
	appbase.App.Commands = append(appbase.App.Commands, initCmdDef)
}

var initCmdDef = &cli.Command{
	Name:      "init",
	Usage:     "Scaffold a new package project",
	ArgsUsage: "NAME | PATH/NAME",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Package kind: \"contract\" or \"agent\"",
			Value: "contract",
		},
		&cli.StringFlag{
			Name:  "author",
			Usage: "Author recorded in the manifest; falls back to the config file",
		},
	},
	Action: util.ChainCmdMiddleware(cmdInit,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdInit(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("a project name (or path ending in one) is required")
	}
	arg := filepath.Clean(c.Args().First())
	name := bpapi.PackageName(filepath.Base(arg))
	if err := dab.ValidatePackageName(name); err != nil {
		return err
	}

	var kind bpapi.PackageKind
	switch c.String("kind") {
	case "contract":
		kind = bpapi.PackageKind_Contract
	case "agent":
		kind = bpapi.PackageKind_Agent
	default:
		return fmt.Errorf("unknown package kind %q: must be \"contract\" or \"agent\"", c.String("kind"))
	}

	author := c.String("author")
	if author == "" {
		cfg, err := util.LoadUserConfig()
		if err != nil {
			return err
		}
		author = cfg.Author
	}
	if author == "" {
		return fmt.Errorf("no author given: pass --author or set \"author\" in the config file")
	}

	if _, err := os.Stat(arg); !os.IsNotExist(err) {
		return bpapi.ErrorFileAlreadyExists(arg)
	}
	if err := os.MkdirAll(filepath.Join(arg, "src"), 0755); err != nil {
		return bpapi.ErrorIo("creating project directory", arg, err)
	}

	m := bpapi.Manifest{
		Name:         name,
		Version:      "0.1.0",
		Kind:         kind,
		EntryPoints:  []bpapi.EntryPoint{"src/lib.rs"},
		Dependencies: []bpapi.Dependency{},
		Meta: &bpapi.PkgMeta{
			Authors: []string{author},
		},
	}
	manifestPath := filepath.Join(arg, dab.MagicFilename_Manifest)
	if err := dab.SaveManifest(manifestPath, m); err != nil {
		return err
	}

	stub, err := renderEntryStub(string(name), kind)
	if err != nil {
		return err
	}
	libPath := filepath.Join(arg, "src", "lib.rs")
	if err := os.WriteFile(libPath, stub, 0644); err != nil {
		return bpapi.ErrorIo("writing entry point stub", libPath, err)
	}

	log := logging.Ctx(c.Context)
	log.Info("init", "created project directory: %s", arg)
	log.Out("Created %s project %q in %s.", kind, name, arg)
	return nil
}

func renderEntryStub(name string, kind bpapi.PackageKind) ([]byte, error) {
	var file string
	switch kind {
	case bpapi.PackageKind_Contract:
		file = "templates/lib-contract.rs"
	case bpapi.PackageKind_Agent:
		file = "templates/lib-agent.rs"
	}
	tmpl, err := templates.ReadFile(file)
	if err != nil {
		return nil, bpapi.ErrorInternal("reading embedded template", err)
	}
	out := strings.ReplaceAll(string(tmpl), "__module_name__", snakeCase(name))
	out = strings.ReplaceAll(out, "__StateName__", pascalCase(name))
	return []byte(out), nil
}

// snakeCase converts a package name (alphanumerics, hyphens, underscores)
// into a lower_snake_case identifier.
func snakeCase(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r == '-' || r == '_':
			b.WriteByte('_')
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		}
	}
	return b.String()
}

// pascalCase converts a package name into a PascalCase identifier.
func pascalCase(name string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range name {
		switch {
		case r == '-' || r == '_':
			upperNext = true
		case upperNext && r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
			upperNext = false
		default:
			b.WriteRune(r)
			upperNext = false
		}
	}
	return b.String()
}
