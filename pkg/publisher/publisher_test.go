package publisher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/linkstore"
)

func TestPushToNodeDestination(t *testing.T) {
	id := bpapi.PackageID{Packtype: "tar", Hash: "abcdefgh"}
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v0/write/package":
			uploaded, _ = io.ReadAll(r.Body)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	link := linkstore.Link{Name: "dev", Addr: srv.URL, Kind: linkstore.LinkKind_Node}
	err := PushToDestination(context.Background(), link, id, []byte("the archive"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(uploaded), qt.Equals, "the archive")
}

func TestPushSkipsPresentPackage(t *testing.T) {
	id := bpapi.PackageID{Packtype: "tar", Hash: "abcdefgh"}
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts++
		}
		// HEAD answers 200: the package is already there.
	}))
	defer srv.Close()

	link := linkstore.Link{Name: "dev", Addr: srv.URL, Kind: linkstore.LinkKind_Node}
	err := PushToDestination(context.Background(), link, id, []byte("the archive"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, posts, qt.Equals, 0)
}

func TestPushRejectsUnknownScheme(t *testing.T) {
	link := linkstore.Link{Name: "odd", Addr: "ftp://files.example.org", Kind: linkstore.LinkKind_Registry}
	err := PushToDestination(context.Background(), link, bpapi.PackageID{Packtype: "tar", Hash: "abcdefgh"}, nil)
	qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeArgument)
}

func TestMockPusherIdempotency(t *testing.T) {
	ctx := context.Background()
	id := bpapi.PackageID{Packtype: "tar", Hash: "abcdefgh"}
	p := newMockPusher()

	has, err := p.hasPackage(ctx, id)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, has, qt.IsFalse)

	qt.Assert(t, p.pushPackage(ctx, id, []byte("archive")), qt.IsNil)
	has, err = p.hasPackage(ctx, id)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, has, qt.IsTrue)
}
