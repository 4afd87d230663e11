// Package packager produces and consumes borderless package archives.
//
// An archive is a zstd-compressed tar stream.  The first entry is the
// bundle document (the manifest plus its signing identity); every file of
// the project tree follows under the "tree/" prefix, in sorted path order,
// with all volatile metadata (timestamps, ownership) zeroed.  Packing the
// same tree twice therefore produces byte-identical archives, and the tree
// digest recorded in the manifest can be recomputed from the archive alone.
package packager

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/borderless-technologies/borderless-cli/bpapi"
	"github.com/borderless-technologies/borderless-cli/pkg/dab"
	"github.com/borderless-technologies/borderless-cli/pkg/hasher"
	"github.com/borderless-technologies/borderless-cli/pkg/keys"
)

// treePrefix is where the project files live inside the archive.
const treePrefix = "tree/"

// KeepProjectFile reports whether a root-relative slash path belongs in a
// package.  Version control internals, previously produced archives, and
// bundle documents are never part of the tree.
func KeepProjectFile(rel string) bool {
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return false
	}
	if rel == dab.MagicFilename_Bundle {
		return false
	}
	if strings.HasSuffix(rel, dab.ArchiveSuffix) {
		return false
	}
	return true
}

// ValidateProject checks that a project directory can be packaged under the
// given manifest.  Each entry point named by the manifest must exist as a
// regular file under dir.
//
// Errors:
//
//    - borderless-error-invalid-project -- when an entry point is missing or not a regular file
//    - borderless-error-io -- when the project directory cannot be read
func ValidateProject(fsys fs.FS, dir string, m bpapi.Manifest) error {
	for _, ep := range m.EntryPoints {
		p := path.Join(dir, string(ep))
		fi, err := fs.Stat(fsys, p)
		if err != nil {
			if os.IsNotExist(err) {
				return bpapi.ErrorInvalidProject(dir, fmt.Sprintf("entry point %q does not exist", ep))
			}
			return bpapi.ErrorIo("validating project", p, err)
		}
		if !fi.Mode().IsRegular() {
			return bpapi.ErrorInvalidProject(dir, fmt.Sprintf("entry point %q is not a regular file", ep))
		}
	}
	return nil
}

// DigestProject computes the tree digest of a project directory.
// Only files kept by KeepProjectFile participate.
//
// Errors:
//
//    - borderless-error-io -- when reading a file fails
//    - borderless-error-searching-filesystem -- when walking the tree fails
func DigestProject(fsys fs.FS, dir string) (bpapi.PackageID, error) {
	return hasher.DigestFS(fsys, dir, KeepProjectFile)
}

// Pack writes the archive for a project directory to w.
// The bundle is stored as the archive's first entry; the project tree
// follows in sorted order.  The source tree is only ever read.
//
// Errors:
//
//    - borderless-error-serialization -- when the bundle cannot be serialized
//    - borderless-error-io -- when reading the project or writing the archive fails
//    - borderless-error-searching-filesystem -- when walking the tree fails
func Pack(fsys fs.FS, dir string, bundle bpapi.Bundle, w io.Writer) error {
	serial, err := dab.EncodeBundle(bundle)
	if err != nil {
		return err
	}

	var paths []string
	walkErr := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel := relPath(dir, p)
		if !KeepProjectFile(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return bpapi.ErrorSearchingFilesystem("project files", walkErr)
	}
	sort.Strings(paths)

	zw, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return bpapi.ErrorIo("creating archive compressor", "", err)
	}
	tw := tar.NewWriter(zw)

	if err := writeEntry(tw, dab.MagicFilename_Bundle, serial); err != nil {
		return err
	}
	for _, rel := range paths {
		full := path.Join(dir, rel)
		data, err := fs.ReadFile(fsys, full)
		if err != nil {
			return bpapi.ErrorIo("reading project file", full, err)
		}
		if err := writeEntry(tw, treePrefix+rel, data); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return bpapi.ErrorIo("finalizing archive", "", err)
	}
	if err := zw.Close(); err != nil {
		return bpapi.ErrorIo("finalizing archive compression", "", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: time.Unix(0, 0),
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return bpapi.ErrorIo("writing archive header", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return bpapi.ErrorIo("writing archive entry", name, err)
	}
	return nil
}

// ReadBundle extracts just the bundle document from an archive stream.
//
// Errors:
//
//    - borderless-error-io -- when reading the archive fails
//    - borderless-error-package-invalid -- when the archive is not a package archive
//    - borderless-error-serialization -- when the bundle cannot be parsed
//    - borderless-error-manifest-invalid -- when the contained manifest is invalid
func ReadBundle(r io.Reader) (bpapi.Bundle, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive is not zstd compressed")
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	hdr, err := tr.Next()
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive contains no entries")
	}
	if hdr.Name != dab.MagicFilename_Bundle {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("first archive entry must be the bundle document")
	}
	serial, err := io.ReadAll(tr)
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorIo("reading bundle from archive", hdr.Name, err)
	}
	return dab.DecodeBundle(serial)
}

// Verify reads an archive stream, recomputes the tree digest from its
// entries, and checks it against the digest and signature recorded in the
// bundle.  The bundle is returned on success.
//
// Errors:
//
//    - borderless-error-io -- when reading the archive fails
//    - borderless-error-package-invalid -- when the archive structure, digest, or signing state is wrong
//    - borderless-error-serialization -- when the bundle cannot be parsed
//    - borderless-error-manifest-invalid -- when the contained manifest is invalid
//    - borderless-error-signature-invalid -- when the signature does not verify
func Verify(r io.Reader) (bpapi.Bundle, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive is not zstd compressed")
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	hdr, err := tr.Next()
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive contains no entries")
	}
	if hdr.Name != dab.MagicFilename_Bundle {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("first archive entry must be the bundle document")
	}
	serial, err := io.ReadAll(tr)
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorIo("reading bundle from archive", hdr.Name, err)
	}
	bundle, err := dab.DecodeBundle(serial)
	if err != nil {
		return bpapi.Bundle{}, err
	}
	if bundle.Manifest.Digest == nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("bundle manifest records no digest")
	}

	th := hasher.NewTreeHasher(bundle.Manifest.Digest.Packtype)
	prev := ""
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bpapi.Bundle{}, bpapi.ErrorIo("reading archive entry", "", err)
		}
		if !strings.HasPrefix(hdr.Name, treePrefix) {
			return bpapi.Bundle{}, bpapi.ErrorPackageInvalid(fmt.Sprintf("unexpected archive entry %q", hdr.Name))
		}
		rel := hdr.Name[len(treePrefix):]
		if rel <= prev {
			return bpapi.Bundle{}, bpapi.ErrorPackageInvalid(fmt.Sprintf("archive entry %q out of order", hdr.Name))
		}
		prev = rel
		if err := th.AddFile(rel, hdr.Size, tr); err != nil {
			return bpapi.Bundle{}, err
		}
	}
	if got := th.Sum(); got != *bundle.Manifest.Digest {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid(fmt.Sprintf("tree digest mismatch: archive contents hash to %s but manifest records %s", got, *bundle.Manifest.Digest))
	}

	if bundle.Ident == nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("package is not signed")
	}
	if err := keys.Verify(bundle.Manifest.Cid(), *bundle.Ident); err != nil {
		return bpapi.Bundle{}, err
	}
	return bundle, nil
}

// Unpack extracts an archive stream into destDir.
// The bundle document lands at the top of destDir and the project tree is
// restored around it.  Existing files are never overwritten.
//
// Errors:
//
//    - borderless-error-io -- when reading the archive or writing files fails
//    - borderless-error-package-invalid -- when the archive structure is wrong
//    - borderless-error-serialization -- when the bundle cannot be parsed
//    - borderless-error-manifest-invalid -- when the contained manifest is invalid
//    - borderless-error-already-exists -- when a destination file already exists
func Unpack(r io.Reader, destDir string) (bpapi.Bundle, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive is not zstd compressed")
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	var bundle bpapi.Bundle
	seenBundle := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bpapi.Bundle{}, bpapi.ErrorIo("reading archive entry", "", err)
		}
		var rel string
		switch {
		case hdr.Name == dab.MagicFilename_Bundle:
			serial, err := io.ReadAll(tr)
			if err != nil {
				return bpapi.Bundle{}, bpapi.ErrorIo("reading bundle from archive", hdr.Name, err)
			}
			bundle, err = dab.DecodeBundle(serial)
			if err != nil {
				return bpapi.Bundle{}, err
			}
			seenBundle = true
			if err := writeFileNoClobber(filepath.Join(destDir, dab.MagicFilename_Bundle), serial); err != nil {
				return bpapi.Bundle{}, err
			}
			continue
		case strings.HasPrefix(hdr.Name, treePrefix):
			rel = hdr.Name[len(treePrefix):]
		default:
			return bpapi.Bundle{}, bpapi.ErrorPackageInvalid(fmt.Sprintf("unexpected archive entry %q", hdr.Name))
		}
		if rel == "" || path.Clean(rel) != rel || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
			return bpapi.Bundle{}, bpapi.ErrorPackageInvalid(fmt.Sprintf("archive entry %q escapes the destination", hdr.Name))
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return bpapi.Bundle{}, bpapi.ErrorIo("reading archive entry", hdr.Name, err)
		}
		dest := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return bpapi.Bundle{}, bpapi.ErrorIo("creating directories", filepath.Dir(dest), err)
		}
		if err := writeFileNoClobber(dest, data); err != nil {
			return bpapi.Bundle{}, err
		}
	}
	if !seenBundle {
		return bpapi.Bundle{}, bpapi.ErrorPackageInvalid("archive contains no bundle document")
	}
	return bundle, nil
}

func writeFileNoClobber(path string, data []byte) error {
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

// WriteArchive packs a project into a new archive file at outPath.
// It refuses to overwrite an existing file and removes the partial output
// if packing fails.
//
// Errors:
//
//    - borderless-error-already-exists -- when outPath already exists
//    - borderless-error-serialization -- when the bundle cannot be serialized
//    - borderless-error-io -- when reading the project or writing the archive fails
//    - borderless-error-searching-filesystem -- when walking the tree fails
func WriteArchive(fsys fs.FS, dir string, bundle bpapi.Bundle, outPath string) error {
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return bpapi.ErrorFileAlreadyExists(outPath)
		}
		return bpapi.ErrorIo("creating archive file", outPath, err)
	}
	if err := Pack(fsys, dir, bundle, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return bpapi.ErrorIo("closing archive file", outPath, err)
	}
	return nil
}
