package publisher

import (
	"context"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
	"github.com/borderless-technologies/borderless-cli/pkg/nodeapi"
)

// nodePusher delivers packages through a node's write API.
type nodePusher struct {
	client *nodeapi.Client
}

func newNodePusher(link linkstore.Link) (*nodePusher, error) {
	client, err := nodeapi.NewClient(link)
	if err != nil {
		return nil, err
	}
	return &nodePusher{client: client}, nil
}

func (p *nodePusher) hasPackage(ctx context.Context, id bpapi.PackageID) (bool, error) {
	return p.client.HasPackage(ctx, id)
}

func (p *nodePusher) pushPackage(ctx context.Context, id bpapi.PackageID, archive []byte) error {
	return p.client.WritePackage(ctx, id, archive)
}
