package publisher

import (
	"context"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// A fake pusher that is intended for tests only. This will do nothing when
// "pushing" packages other than keep track of what has been pushed.

type mockPusher struct {
	packages map[bpapi.PackageID][]byte
}

func newMockPusher() *mockPusher {
	return &mockPusher{packages: map[bpapi.PackageID][]byte{}}
}

func (p *mockPusher) hasPackage(ctx context.Context, id bpapi.PackageID) (bool, error) {
	_, exists := p.packages[id]
	return exists, nil
}

func (p *mockPusher) pushPackage(ctx context.Context, id bpapi.PackageID, archive []byte) error {
	p.packages[id] = archive
	return nil
}
