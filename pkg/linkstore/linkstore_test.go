package linkstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

func TestLinkValidate(t *testing.T) {
	good := Link{Name: "local", Addr: "http://127.0.0.1:8080", Kind: LinkKind_Node}
	qt.Assert(t, good.Validate(), qt.IsNil)

	bad := []Link{
		{Name: "", Addr: "http://a", Kind: LinkKind_Node},
		{Name: "has space", Addr: "http://a", Kind: LinkKind_Node},
		{Name: "x", Addr: "http://a", Kind: "mystery"},
		{Name: "x", Addr: "not a url", Kind: LinkKind_Node},
		{Name: "x", Addr: "", Kind: LinkKind_Registry},
	}
	for _, l := range bad {
		err := l.Validate()
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeArgument, qt.Commentf("link: %+v", l))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links")

	s, err := Open(path)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, s.Links(), qt.HasLen, 0)

	qt.Assert(t, s.Add(Link{Name: "prod", Addr: "https://node.example.org", Kind: LinkKind_Node, APIKey: "sekrit"}), qt.IsNil)
	qt.Assert(t, s.Add(Link{Name: "cache", Addr: "ca+s3://bucket.example.org", Kind: LinkKind_Registry}), qt.IsNil)
	qt.Assert(t, s.Commit(), qt.IsNil)

	reopened, err := Open(path)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, reopened.Links(), qt.DeepEquals, []Link{
		{Name: "cache", Addr: "ca+s3://bucket.example.org", Kind: LinkKind_Registry},
		{Name: "prod", Addr: "https://node.example.org", Kind: LinkKind_Node, APIKey: "sekrit"},
	})

	l, err := reopened.Get("prod")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, l.APIKey, qt.Equals, "sekrit")
	qt.Assert(t, reopened.Contains("cache"), qt.IsTrue)
	qt.Assert(t, reopened.Contains("nope"), qt.IsFalse)
}

func TestStoreMutations(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "links"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, s.Add(Link{Name: "dev", Addr: "http://localhost:8080", Kind: LinkKind_Node}), qt.IsNil)

	t.Run("add-duplicate", func(t *testing.T) {
		err := s.Add(Link{Name: "dev", Addr: "http://elsewhere", Kind: LinkKind_Node})
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeAlreadyExists)
	})
	t.Run("get-missing", func(t *testing.T) {
		_, err := s.Get("nonesuch")
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeMissing)
	})
	t.Run("modify", func(t *testing.T) {
		qt.Assert(t, s.Modify(Link{Name: "dev", Addr: "http://localhost:9090", Kind: LinkKind_Node}), qt.IsNil)
		l, err := s.Get("dev")
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, l.Addr, qt.Equals, "http://localhost:9090")
	})
	t.Run("modify-missing", func(t *testing.T) {
		err := s.Modify(Link{Name: "nonesuch", Addr: "http://x", Kind: LinkKind_Node})
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeMissing)
	})
	t.Run("remove", func(t *testing.T) {
		qt.Assert(t, s.Remove("dev"), qt.IsNil)
		qt.Assert(t, s.Contains("dev"), qt.IsFalse)
		err := s.Remove("dev")
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeMissing)
	})
}

func TestOpenRejectsBadFiles(t *testing.T) {
	t.Run("garbage-line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "links")
		qt.Assert(t, os.WriteFile(path, []byte("not json\n"), 0644), qt.IsNil)
		_, err := Open(path)
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeLinkStore)
	})
	t.Run("duplicate-name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "links")
		lines := strings.Join([]string{
			`{"name":"dup","addr":"http://a.example.org","kind":"node"}`,
			`{"name":"dup","addr":"http://b.example.org","kind":"node"}`,
		}, "\n") + "\n"
		qt.Assert(t, os.WriteFile(path, []byte(lines), 0644), qt.IsNil)
		_, err := Open(path)
		qt.Assert(t, serum.Code(err), qt.Equals, bpapi.ECodeLinkStore)
	})
	t.Run("blank-lines-ignored", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "links")
		content := "\n" + `{"name":"a","addr":"http://a.example.org","kind":"node"}` + "\n\n"
		qt.Assert(t, os.WriteFile(path, []byte(content), 0644), qt.IsNil)
		s, err := Open(path)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, s.Links(), qt.HasLen, 1)
	})
}
