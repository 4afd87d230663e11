package bpapi

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ipld/go-ipld-prime/schema"
)

func init() {
	TypeSystem.Accumulate(schema.SpawnStruct("PackageID",
		[]schema.StructField{
			schema.SpawnStructField("packtype", "Packtype", false, false),
			schema.SpawnStructField("hash", "String", false, false),
		},
		schema.SpawnStructRepresentationStringjoin(":")))
	TypeSystem.Accumulate(schema.SpawnString("Packtype"))
}

// PackageID is the content address of packaged contents: a packing format
// plus a base58-encoded multihash of the canonical tree stream.
// Identical contents always yield an identical PackageID regardless of
// the order in which files were enumerated at build time.
type PackageID struct {
	Packtype Packtype // e.g. "tar"
	Hash     string   // base58btc multihash of the canonical tree stream.
}

func (p PackageID) String() string {
	return fmt.Sprintf("%s:%s", p.Packtype, p.Hash)
}

// Subpath returns the sharded relative path used to address this package
// in warehouses and caches (e.g. "abc/def/abcdef...").
func (p PackageID) Subpath() string {
	return filepath.Join(p.Hash[0:3], p.Hash[3:6], p.Hash)
}

// ParsePackageID parses the "packtype:hash" string form of a PackageID.
//
// Errors:
//
//    - borderless-error-packageid-invalid -- when the string is malformed
func ParsePackageID(s string) (PackageID, error) {
	packtype, hash, found := strings.Cut(s, ":")
	id := PackageID{Packtype(packtype), hash}
	if !found || packtype == "" || len(hash) < 7 {
		return PackageID{}, ErrorPackageIdInvalid(id)
	}
	return id, nil
}

type Packtype string
