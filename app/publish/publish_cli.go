package publishcli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/packager"
	"github.com/borderless-technologies/borderless-cli/pkg/publisher"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, publishCmdDef)
}

var publishCmdDef = &cli.Command{
	Name:      "publish",
	Usage:     "Verify a package archive and push it to a registry destination",
	ArgsUsage: "BPKG",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "to",
			Usage: "Destination: a link name, or a destination address (https:// or ca+s3://)",
		},
	},
	Action: util.ChainCmdMiddleware(cmdPublish,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdPublish(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("publish takes exactly one argument: a package archive")
	}
	if c.String("to") == "" {
		return fmt.Errorf("publish requires a destination: pass --to LINKNAME or --to ADDR")
	}
	archivePath := c.Args().First()
	log := logging.Ctx(c.Context)

	archive, err := os.ReadFile(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return bpapi.ErrorFileMissing(archivePath)
		}
		return bpapi.ErrorIo("reading archive", archivePath, err)
	}
	bundle, err := packager.Verify(bytes.NewReader(archive))
	if err != nil {
		return err
	}
	log.Info("publish", "verified archive: package %s, digest %s", bundle.Manifest.Name, *bundle.Manifest.Digest)

	link, err := resolveDestination(c.String("to"))
	if err != nil {
		return err
	}
	if err := publisher.PushToDestination(c.Context, link, *bundle.Manifest.Digest, archive); err != nil {
		return err
	}
	log.Out("Published %s (%s) to %s.", bundle.Manifest.Name, *bundle.Manifest.Digest, link.Addr)
	return nil
}

// resolveDestination accepts either the name of a stored link or a
// destination address written out in full.
func resolveDestination(to string) (linkstore.Link, error) {
	if strings.Contains(to, "://") {
		return linkstore.Link{Name: "(inline)", Addr: to, Kind: linkstore.LinkKind_Registry}, nil
	}
	store, err := util.OpenLinkStore()
	if err != nil {
		return linkstore.Link{}, err
	}
	return store.Get(to)
}
