package templatecli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	"github.com/borderless-technologies/borderless-cli/app/base/util"
	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/logging"
	"github.com/borderless-technologies/borderless-cli/pkg/nodeapi"
)

func init() {
	appbase.App.Commands = append(appbase.App.Commands, templateCmdDef)
}

var templateCmdDef = &cli.Command{
	Name:  "template",
	Usage: "Generate document skeletons",
	Subcommands: []*cli.Command{
		{
			Name:  "introduction",
			Usage: "Emit an introduction document skeleton",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "node",
					Usage: "Link name of a node to query for participants",
				},
				&cli.StringSliceFlag{
					Name:  "peers",
					Usage: "Participant node ids; skips querying a node",
				},
				&cli.StringFlag{
					Name:      "output",
					Aliases:   []string{"o"},
					Usage:     "Write the skeleton to this file instead of stdout",
					TakesFile: true,
				},
			},
			Action: util.ChainCmdMiddleware(cmdTemplateIntroduction,
				util.CmdMiddlewareLogging,
				util.CmdMiddlewareTracingConfig,
				util.CmdMiddlewareTracingSpan,
			),
		},
	},
}

// introduction is the skeleton document shape.  The package field is
// populated later by `borderless merge`.
type introduction struct {
	Participants []string               `json:"participants"`
	InitialState map[string]interface{} `json:"initial_state"`
	Roles        []string               `json:"roles"`
	Sinks        []string               `json:"sinks"`
	Desc         description            `json:"desc"`
	Package      map[string]interface{} `json:"package"`
}

type description struct {
	DisplayName string  `json:"display_name"`
	Summary     string  `json:"summary"`
	Legal       *string `json:"legal"`
}

func cmdTemplateIntroduction(c *cli.Context) error {
	log := logging.Ctx(c.Context)

	peers := c.StringSlice("peers")
	if len(peers) == 0 {
		nodeName := c.String("node")
		if nodeName == "" {
			return fmt.Errorf("pass --peers to list participants directly, or --node to query a linked node for them")
		}
		store, err := util.OpenLinkStore()
		if err != nil {
			return err
		}
		link, err := store.Get(nodeName)
		if err != nil {
			return err
		}
		client, err := nodeapi.NewClient(link)
		if err != nil {
			return err
		}
		info, err := client.Info(c.Context)
		if err != nil {
			return err
		}
		log.Info("template", "queried node %s (version %s) for participants", info.NodeId, info.Version)
		certs, err := client.NetworkPeers(c.Context)
		if err != nil {
			return err
		}
		for _, cert := range certs {
			peers = append(peers, cert.NodeId)
		}
	}

	doc := introduction{
		Participants: peers,
		InitialState: map[string]interface{}{},
		Roles:        []string{},
		Sinks:        []string{},
		Package:      map[string]interface{}{},
	}
	serial, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return bpapi.ErrorSerialization("serializing introduction skeleton", err)
	}
	serial = append(serial, '\n')

	if outPath := c.String("output"); outPath != "" {
		if err := writeNewFile(outPath, serial); err != nil {
			return err
		}
		log.Out("Created introduction skeleton at %s. Use `borderless merge` to add a package to it.", outPath)
		return nil
	}
	log.OutRaw(string(serial))
	return nil
}

func writeNewFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return bpapi.ErrorFileAlreadyExists(path)
		}
		return bpapi.ErrorIo("creating file", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return bpapi.ErrorIo("writing file", path, err)
	}
	return nil
}
