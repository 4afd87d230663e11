package hasher_test

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/borderless-technologies/borderless-cli/pkg/hasher"
)

func TestDigestIsDeterministic(t *testing.T) {
	// Two filesystems with the same contents, built in different orders.
	// MapFS iteration order is randomized by the fs.WalkDir sort anyway,
	// but the point stands: only paths and contents may matter.
	a := fstest.MapFS{
		"proj/Manifest.json":  &fstest.MapFile{Data: []byte(`{}`), Mode: 0644},
		"proj/pkg/entry.wasm": &fstest.MapFile{Data: []byte("\x00asm"), Mode: 0755},
		"proj/README.md":      &fstest.MapFile{Data: []byte("hello"), Mode: 0644},
	}
	b := fstest.MapFS{
		"proj/README.md":      &fstest.MapFile{Data: []byte("hello"), Mode: 0600, ModTime: someTime()},
		"proj/pkg/entry.wasm": &fstest.MapFile{Data: []byte("\x00asm"), Mode: 0644, ModTime: someTime()},
		"proj/Manifest.json":  &fstest.MapFile{Data: []byte(`{}`), Mode: 0644, ModTime: someTime()},
	}

	idA, err := hasher.DigestFS(a, "proj", nil)
	qt.Assert(t, err, qt.IsNil)
	idB, err := hasher.DigestFS(b, "proj", nil)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, idA, qt.Equals, idB)
	qt.Assert(t, idA.Packtype, qt.Equals, hasher.Packtype_Tar)
}

func TestDigestChangesWithContent(t *testing.T) {
	base := fstest.MapFS{
		"a.txt": &fstest.MapFile{Data: []byte("one")},
		"b.txt": &fstest.MapFile{Data: []byte("two")},
	}
	edited := fstest.MapFS{
		"a.txt": &fstest.MapFile{Data: []byte("one")},
		"b.txt": &fstest.MapFile{Data: []byte("two!")},
	}
	renamed := fstest.MapFS{
		"a.txt": &fstest.MapFile{Data: []byte("one")},
		"c.txt": &fstest.MapFile{Data: []byte("two")},
	}

	idBase, err := hasher.DigestFS(base, ".", nil)
	qt.Assert(t, err, qt.IsNil)
	idEdited, err := hasher.DigestFS(edited, ".", nil)
	qt.Assert(t, err, qt.IsNil)
	idRenamed, err := hasher.DigestFS(renamed, ".", nil)
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, idBase, qt.Not(qt.Equals), idEdited)
	qt.Assert(t, idBase, qt.Not(qt.Equals), idRenamed)
}

func TestDigestFilter(t *testing.T) {
	withJunk := fstest.MapFS{
		"src/lib.txt":  &fstest.MapFile{Data: []byte("lib")},
		"out/obj.bpkg": &fstest.MapFile{Data: []byte("junk")},
	}
	clean := fstest.MapFS{
		"src/lib.txt": &fstest.MapFile{Data: []byte("lib")},
	}

	keep := func(path string) bool { return !strings.HasSuffix(path, ".bpkg") }
	idFiltered, err := hasher.DigestFS(withJunk, ".", keep)
	qt.Assert(t, err, qt.IsNil)
	idClean, err := hasher.DigestFS(clean, ".", nil)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, idFiltered, qt.Equals, idClean)
}

func TestTreeHasherMatchesDigestFS(t *testing.T) {
	fsys := fstest.MapFS{
		"x/a": &fstest.MapFile{Data: []byte("aaa")},
		"x/b": &fstest.MapFile{Data: []byte("bbb")},
	}
	id, err := hasher.DigestFS(fsys, "x", nil)
	qt.Assert(t, err, qt.IsNil)

	// Feeding the same records manually (sorted, relative paths) must agree.
	th := hasher.NewTreeHasher(hasher.Packtype_Tar)
	qt.Assert(t, th.AddFile("a", 3, strings.NewReader("aaa")), qt.IsNil)
	qt.Assert(t, th.AddFile("b", 3, strings.NewReader("bbb")), qt.IsNil)
	qt.Assert(t, th.Sum(), qt.Equals, id)
}

func someTime() time.Time { return time.Unix(1234567890, 0) }
