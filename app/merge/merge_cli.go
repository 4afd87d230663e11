package mergecli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/packager"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, mergeCmdDef)
}

var mergeCmdDef = &cli.Command{
	Name:      "merge",
	Usage:     "Merge a package bundle into an introduction document",
	ArgsUsage: "INTRODUCTION PACKAGE",
	Description: "The PACKAGE argument may be a bundle.json or a .bpkg archive.\n" +
		"The introduction's \"package\" field is replaced and the document rewritten in place.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "Write the merged introduction here instead of rewriting in place",
			TakesFile: true,
		},
	},
	Action: util.ChainCmdMiddleware(cmdMerge,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdMerge(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("merge takes exactly two arguments: an introduction document and a package")
	}
	introPath := c.Args().Get(0)
	pkgPath := c.Args().Get(1)
	log := logging.Ctx(c.Context)

	introSerial, err := os.ReadFile(introPath)
	if err != nil {
		return bpapi.ErrorIo("reading introduction", introPath, err)
	}
	var intro map[string]json.RawMessage
	if err := json.Unmarshal(introSerial, &intro); err != nil {
		return bpapi.ErrorSerialization("parsing introduction: must be a json object", err)
	}

	bundle, err := loadBundleArg(pkgPath)
	if err != nil {
		return err
	}
	bundleSerial, err := dab.EncodeBundle(bundle)
	if err != nil {
		return err
	}
	intro["package"] = json.RawMessage(bundleSerial)

	merged, err := json.MarshalIndent(intro, "", "\t")
	if err != nil {
		return bpapi.ErrorSerialization("serializing merged introduction", err)
	}
	merged = append(merged, '\n')

	outPath := c.String("output")
	if outPath == "" {
		outPath = introPath
	}
	if err := os.WriteFile(outPath, merged, 0644); err != nil {
		return bpapi.ErrorIo("writing merged introduction", outPath, err)
	}
	log.Out("Merged package %q into %s.", bundle.Manifest.Name, outPath)
	return nil
}

func loadBundleArg(path string) (bpapi.Bundle, error) {
	if strings.HasSuffix(path, dab.ArchiveSuffix) {
		f, err := os.Open(path)
		if err != nil {
			return bpapi.Bundle{}, bpapi.ErrorIo("opening archive", path, err)
		}
		defer f.Close()
		return packager.ReadBundle(f)
	}
	serial, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return bpapi.Bundle{}, bpapi.ErrorFileMissing(path)
		}
		return bpapi.Bundle{}, bpapi.ErrorIo("reading bundle", path, err)
	}
	return dab.DecodeBundle(serial)
}
