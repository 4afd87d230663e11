package hasher

import (
	"crypto/sha256"
	"hash"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// Packtype_Tar is the packing format produced by the packager.
const Packtype_Tar bpapi.Packtype = "tar"

// TreeHasher computes a digest over a canonical stream of file records.
// Callers must feed files in sorted path order with slash-separated,
// root-relative paths; the packager's tar layout and DigestFS both do this,
// which is what makes on-disk trees and archived trees hash identically.
//
// Each record is framed as `path NUL size NUL content` so that file
// boundaries and renames are part of the digest, while volatile metadata
// (mtimes, ownership) never is.
type TreeHasher struct {
	h        hash.Hash
	packtype bpapi.Packtype
}

func NewTreeHasher(packtype bpapi.Packtype) *TreeHasher {
	return &TreeHasher{
		h:        sha256.New(),
		packtype: packtype,
	}
}

// AddFile appends one file record to the canonical stream.
//
// Errors:
//
//    - borderless-error-io -- when reading the content fails
func (t *TreeHasher) AddFile(path string, size int64, content io.Reader) error {
	t.h.Write([]byte(path))
	t.h.Write([]byte{0})
	t.h.Write([]byte(strconv.FormatInt(size, 10)))
	t.h.Write([]byte{0})
	if _, err := io.Copy(t.h, content); err != nil {
		return bpapi.ErrorIo("hashing file content", path, err)
	}
	return nil
}

// Sum finalizes the digest and returns the content address.
func (t *TreeHasher) Sum() bpapi.PackageID {
	sum := t.h.Sum(nil)
	mh, err := multihash.Encode(sum, multihash.SHA2_256)
	if err != nil {
		// panic! multihash encoding of a well-formed sha256 sum cannot fail.
		panic("multihash encode failed: " + err.Error())
	}
	return bpapi.PackageID{
		Packtype: t.packtype,
		Hash:     base58.Encode(mh),
	}
}

// DigestFS hashes every regular file under root in fsys.
// The result depends only on paths and contents: enumeration order,
// timestamps, and ownership have no effect, so identical trees always
// yield identical digests. Paths in the digest are relative to root.
//
// The keep function, when non-nil, filters which files participate;
// it receives the root-relative slash path.
//
// Errors:
//
//    - borderless-error-io -- when reading a file fails
//    - borderless-error-searching-filesystem -- when walking the tree fails
func DigestFS(fsys fs.FS, root string, keep func(string) bool) (bpapi.PackageID, error) {
	var paths []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel := relPath(root, p)
		if keep != nil && !keep(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return bpapi.PackageID{}, bpapi.ErrorSearchingFilesystem("project files", err)
	}
	sort.Strings(paths)

	th := NewTreeHasher(Packtype_Tar)
	for _, rel := range paths {
		full := path.Join(root, rel)
		fi, err := fs.Stat(fsys, full)
		if err != nil {
			return bpapi.PackageID{}, bpapi.ErrorIo("stat during hashing", full, err)
		}
		f, err := fsys.Open(full)
		if err != nil {
			return bpapi.PackageID{}, bpapi.ErrorIo("open during hashing", full, err)
		}
		err = th.AddFile(rel, fi.Size(), f)
		f.Close()
		if err != nil {
			return bpapi.PackageID{}, err
		}
	}
	return th.Sum(), nil
}

// DigestBytes hashes a single opaque blob, e.g. a finished archive file.
func DigestBytes(packtype bpapi.Packtype, data []byte) bpapi.PackageID {
	sum := sha256.Sum256(data)
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		panic("multihash encode failed: " + err.Error())
	}
	return bpapi.PackageID{
		Packtype: packtype,
		Hash:     base58.Encode(mh),
	}
}

func relPath(root, p string) string {
	if root == "." || root == "" {
		return p
	}
	rel := p[len(root):]
	for len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return rel
}
