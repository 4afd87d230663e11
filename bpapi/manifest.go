package bpapi

import (
	"fmt"

	"github.com/ipfs/go-cid"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/bindnode"
	"github.com/ipld/go-ipld-prime/schema"
)

func init() {
	TypeSystem.Accumulate(schema.SpawnStruct("Manifest",
		[]schema.StructField{
			schema.SpawnStructField("name", "PackageName", false, false),
			schema.SpawnStructField("version", "SemVer", false, false),
			schema.SpawnStructField("kind", "PackageKind", false, false),
			schema.SpawnStructField("entryPoints", "List__EntryPoint", false, false),
			schema.SpawnStructField("dependencies", "List__Dependency", false, false),
			schema.SpawnStructField("meta", "PkgMeta", true, false),
			schema.SpawnStructField("gitInfo", "GitInfo", true, false),
			schema.SpawnStructField("digest", "PackageID", true, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnString("PackageName"))
	TypeSystem.Accumulate(schema.SpawnString("SemVer"))
	TypeSystem.Accumulate(schema.SpawnString("PackageKind"))
	TypeSystem.Accumulate(schema.SpawnString("EntryPoint"))
	TypeSystem.Accumulate(schema.SpawnList("List__EntryPoint", "EntryPoint", false))
	TypeSystem.Accumulate(schema.SpawnList("List__Dependency", "Dependency", false))
	TypeSystem.Accumulate(schema.SpawnStruct("Dependency",
		[]schema.StructField{
			schema.SpawnStructField("name", "PackageName", false, false),
			schema.SpawnStructField("version", "String", false, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnStruct("PkgMeta",
		[]schema.StructField{
			schema.SpawnStructField("authors", "List__String", false, false),
			schema.SpawnStructField("description", "String", true, false),
			schema.SpawnStructField("homepage", "String", true, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnList("List__String", "String", false))
	TypeSystem.Accumulate(schema.SpawnStruct("GitInfo",
		[]schema.StructField{
			schema.SpawnStructField("commit", "String", false, false),
			schema.SpawnStructField("branch", "String", true, false),
			schema.SpawnStructField("dirty", "Bool", false, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnUnion("ManifestCapsule",
		[]schema.TypeName{
			"Manifest",
		},
		schema.SpawnUnionRepresentationKeyed(map[string]schema.TypeName{
			"manifest.v1": "Manifest",
		})))
}

type PackageName string

// SemVer is a semantic version string, e.g. "1.2.0".
// Syntax is validated by the dab package when loading manifests.
type SemVer string

type PackageKind string

const (
	PackageKind_Contract PackageKind = "contract"
	PackageKind_Agent    PackageKind = "agent"
)

// EntryPoint is a slash-separated path, relative to the project root,
// naming a file the packaged artifact is entered through.
type EntryPoint string

// Dependency names another package and the version range accepted for it.
type Dependency struct {
	Name    PackageName
	Version string
}

type PkgMeta struct {
	Authors     []string
	Description *string
	Homepage    *string
}

// GitInfo records the state of the project's git worktree at pack time.
type GitInfo struct {
	Commit string
	Branch *string
	Dirty  bool
}

// Manifest describes a package's identity and contents.
// The digest field is nil in project manifests on disk; the packager fills it
// at pack time, and at publish time it must match the hash of the packaged
// contents.
type Manifest struct {
	Name         PackageName
	Version      SemVer
	Kind         PackageKind
	EntryPoints  []EntryPoint
	Dependencies []Dependency
	Meta         *PkgMeta
	GitInfo      *GitInfo
	Digest       *PackageID
}

// ManifestCapsule is the versioning wrapper used in serial forms of Manifest.
type ManifestCapsule struct {
	Manifest *Manifest
}

type ManifestCID string

// Cid computes the content identifier of the manifest.
// This value is the signing input: signatures bind the whole manifest,
// digest included, not just the tree hash.
func (m *Manifest) Cid() ManifestCID {
	n := bindnode.Wrap(m, TypeSystem.TypeByName("Manifest"))

	lnk, errRaw := LinkSystem.ComputeLink(cidlink.LinkPrototype{Prefix: cid.Prefix{
		Version:  1,    // Usually '1'.
		Codec:    0x71, // 0x71 means "dag-cbor" -- See the multicodecs table: https://github.com/multiformats/multicodec/
		MhType:   0x13, // 0x13 means "sha2-512" -- See the multicodecs table: https://github.com/multiformats/multicodec/
		MhLength: 64,   // sha2-512 hash has a 64-byte sum.
	}}, n.(schema.TypedNode).Representation())
	if errRaw != nil {
		// panic! this should never fail unless IPLD is broken
		panic(fmt.Sprintf("Fatal IPLD Error: lsys.ComputeLink failed for Manifest: %s", errRaw))
	}
	return ManifestCID(lnk.String())
}
