package linkcli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, linkCmdDef)
}

var linkCmdDef = &cli.Command{
	Name:  "link",
	Usage: "Manage links to nodes and registries",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "Add a named link",
			ArgsUsage: "NAME ADDR",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kind",
					Usage: "Link kind: \"node\" or \"registry\"",
					Value: "node",
				},
				&cli.StringFlag{
					Name:  "api-key",
					Usage: "API key sent as a bearer token on requests to this link",
				},
				&cli.BoolFlag{
					Name:  "update",
					Usage: "Replace an existing link of the same name",
				},
			},
			Action: util.ChainCmdMiddleware(cmdLinkAdd,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:  "ls",
			Usage: "List all links",
			Action: util.ChainCmdMiddleware(cmdLinkLs,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
		{
			Name:      "rm",
			Usage:     "Remove a named link",
			ArgsUsage: "NAME",
			Action: util.ChainCmdMiddleware(cmdLinkRm,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
	},
}

func cmdLinkAdd(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("link add takes exactly two arguments: a name and an address")
	}
	store, err := util.OpenLinkStore()
	if err != nil {
		return err
	}
	link := linkstore.Link{
		Name:   c.Args().Get(0),
		Addr:   c.Args().Get(1),
		Kind:   linkstore.LinkKind(c.String("kind")),
		APIKey: c.String("api-key"),
	}
	verb := "Added"
	if c.Bool("update") && store.Contains(link.Name) {
		err = store.Modify(link)
		verb = "Updated"
	} else {
		err = store.Add(link)
	}
	if err != nil {
		return err
	}
	if err := store.Commit(); err != nil {
		return err
	}
	log := logging.Ctx(c.Context)
	log.Out("%s %s link %q -> %s", verb, link.Kind, link.Name, link.Addr)
	return nil
}

func cmdLinkLs(c *cli.Context) error {
	store, err := util.OpenLinkStore()
	if err != nil {
		return err
	}
	log := logging.Ctx(c.Context)
	for _, l := range store.Links() {
		log.Out("%s\t%s\t%s", l.Name, l.Kind, l.Addr)
	}
	return nil
}

func cmdLinkRm(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("link rm takes exactly one argument: a link name")
	}
	store, err := util.OpenLinkStore()
	if err != nil {
		return err
	}
	name := c.Args().First()
	if err := store.Remove(name); err != nil {
		return err
	}
	if err := store.Commit(); err != nil {
		return err
	}
	log := logging.Ctx(c.Context)
	log.Out("Removed link %q", name)
	return nil
}
