package packcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serum-errors/go-serum"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/keys"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/packager"
	"github.com/borderless-technologies/borderless-cli/pkg/tracing"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, packCmdDef)
}

var packCmdDef = &cli.Command{
	Name:      "pack",
	Usage:     "Build a signed package archive from a project directory",
	ArgsUsage: "[PATH]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "Path of the archive to write; defaults to <name>.bpkg in the project directory",
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:  "no-git-info",
			Usage: "Do not record git commit and worktree state in the manifest",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Overwrite an existing archive",
		},
	},
	Action: util.ChainCmdMiddleware(cmdPack,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdPack(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return fmt.Errorf("pack takes at most one path argument")
	}
	log := logging.Ctx(c.Context)

	manifest, projectDir, err := util.FindProject(c.Args().First())
	if err != nil {
		return err
	}
	log.Debug("pack", "project directory: %s", projectDir)
	trace.SpanFromContext(c.Context).SetAttributes(
		attribute.String(tracing.AttrKeyBorderlessPackageName, string(manifest.Name)),
	)

	fsys := os.DirFS("/")
	fsDir := strings.TrimPrefix(projectDir, "/")
	if err := packager.ValidateProject(fsys, fsDir, manifest); err != nil {
		return err
	}

	if !c.Bool("no-git-info") {
		gitInfo, err := collectGitInfo(projectDir)
		if err != nil {
			return err
		}
		if gitInfo == nil {
			log.Debug("pack", "no git repository found, manifest will carry no git info")
		}
		manifest.GitInfo = gitInfo
	}

	digest, err := packager.DigestProject(fsys, fsDir)
	if err != nil {
		return err
	}
	manifest.Digest = &digest
	log.Info("pack", "tree digest: %s", digest)

	bundle := bpapi.Bundle{Manifest: manifest}
	key, keyPath, keyConfigured, err := util.ResolveSigningKey(c)
	switch {
	case err == nil:
		ident := keys.Sign(manifest.Cid(), key)
		bundle.Ident = &ident
		log.Info("pack", "signed with key at %s", keyPath)
	case serum.Code(err) == bpapi.ECodeKeyNotFound && !keyConfigured:
		// No key configured anywhere. The archive is built unsigned;
		// deploy and publish will refuse it until it is signed.
		log.Warn("pack", "no signing key at %s, archive will be unsigned", keyPath)
	default:
		// A configured key that is missing or unreadable is a hard failure.
		return err
	}

	outPath := c.String("output")
	if outPath == "" {
		outPath = filepath.Join(projectDir, string(manifest.Name)+dab.ArchiveSuffix)
	}
	if c.Bool("force") {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			return bpapi.ErrorIo("removing previous archive", outPath, err)
		}
	}
	if err := packager.WriteArchive(fsys, fsDir, bundle, outPath); err != nil {
		return err
	}

	bundlePath := filepath.Join(filepath.Dir(outPath), dab.MagicFilename_Bundle)
	if err := dab.SaveBundle(bundlePath, bundle); err != nil {
		return err
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		return bpapi.ErrorIo("inspecting archive", outPath, err)
	}
	log.Out("Packed %s (%s) -> %s", manifest.Name, humanReadableSize(fi.Size()), outPath)
	return nil
}

func humanReadableSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
