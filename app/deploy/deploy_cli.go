package deploycli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/nodeapi"
	"github.com/borderless-technologies/borderless-cli/pkg/packager"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, deployCmdDef)
}

var deployCmdDef = &cli.Command{
	Name:      "deploy",
	Usage:     "Verify a package archive and upload it to a linked node",
	ArgsUsage: "BPKG",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "to",
			Usage: "Name of the node link to deploy to; may be omitted when exactly one node link exists",
		},
	},
	Action: util.ChainCmdMiddleware(cmdDeploy,
		util.CmdMiddlewareLogging,
		util.CmdMiddlewareTracingConfig,
		util.CmdMiddlewareTracingSpan,
	),
}

func cmdDeploy(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("deploy takes exactly one argument: a package archive")
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
	log.Info("deploy", "verified archive: package %s, digest %s", bundle.Manifest.Name, *bundle.Manifest.Digest)

	link, err := pickNodeLink(c.String("to"))
	if err != nil {
		return err
	}
	client, err := nodeapi.NewClient(link)
	if err != nil {
		return err
	}
	if err := client.WritePackage(c.Context, *bundle.Manifest.Digest, archive); err != nil {
		return err
	}
	log.Out("Deployed %s (%s) to %q.", bundle.Manifest.Name, *bundle.Manifest.Digest, link.Name)
	return nil
}

// pickNodeLink resolves the deployment target.  An explicit name wins;
// otherwise a single existing node link is used.
func pickNodeLink(name string) (linkstore.Link, error) {
	store, err := util.OpenLinkStore()
	if err != nil {
		return linkstore.Link{}, err
	}
	if name != "" {
		return store.Get(name)
	}
	var nodes []linkstore.Link
	for _, l := range store.Links() {
		if l.Kind == linkstore.LinkKind_Node {
			nodes = append(nodes, l)
		}
	}
	switch len(nodes) {
	case 0:
		return linkstore.Link{}, fmt.Errorf("no node links configured: add one with `borderless link add`")
	case 1:
		return nodes[0], nil
	default:
		return linkstore.Link{}, fmt.Errorf("%d node links configured: pick one with --to", len(nodes))
	}
}
