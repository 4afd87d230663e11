package bpapi

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/json"
)

func TestParseManifest(t *testing.T) {
	serial := `{
	"manifest.v1": {
		"name": "invoice-flow",
		"version": "0.1.0",
		"kind": "contract",
		"entryPoints": [
			"pkg/invoice_flow.wasm"
		],
		"dependencies": [
			{
				"name": "ledger-core",
				"version": "^1.2"
			}
		],
		"meta": {
			"authors": [
				"Jane Doe <jane@example.com>"
			],
			"description": "invoice settlement contract"
		}
	}
}
`

	capsule := ManifestCapsule{}
	_, err := ipld.Unmarshal([]byte(serial), json.Decode, &capsule, TypeSystem.TypeByName("ManifestCapsule"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, capsule.Manifest, qt.IsNotNil)
	qt.Assert(t, capsule.Manifest.Name, qt.Equals, PackageName("invoice-flow"))
	qt.Assert(t, capsule.Manifest.Kind, qt.Equals, PackageKind_Contract)
	qt.Assert(t, capsule.Manifest.Digest, qt.IsNil)

	reserial, err := ipld.Marshal(json.Encode, &capsule, TypeSystem.TypeByName("ManifestCapsule"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, string(reserial), qt.CmpEquals(), serial)
}

func TestManifestCidIsStable(t *testing.T) {
	digest := PackageID{Packtype: "tar", Hash: "4sVPGhBuc3WA1XfPcbhfHxLFuuohAvy8NoGJ"}
	m := Manifest{
		Name:        "invoice-flow",
		Version:     "0.1.0",
		Kind:        PackageKind_Contract,
		EntryPoints: []EntryPoint{"pkg/invoice_flow.wasm"},
		Digest:      &digest,
	}
	m2 := m // copy; same contents must yield the same cid
	qt.Assert(t, m.Cid(), qt.Equals, m2.Cid())

	m2.Version = "0.1.1"
	qt.Assert(t, m.Cid(), qt.Not(qt.Equals), m2.Cid())
}

func TestParsePackageID(t *testing.T) {
	id, err := ParsePackageID("tar:4sVPGhBuc3WA1XfPcbhfHxLFuuohAvy8NoGJ")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, id.Packtype, qt.Equals, Packtype("tar"))
	qt.Assert(t, id.String(), qt.Equals, "tar:4sVPGhBuc3WA1XfPcbhfHxLFuuohAvy8NoGJ")

	for _, bad := range []string{"", "tar", "tar:", ":abcdefgh", "tar:short"} {
		_, err := ParsePackageID(bad)
		qt.Assert(t, err, qt.IsNotNil, qt.Commentf("input: %q", bad))
	}
}
