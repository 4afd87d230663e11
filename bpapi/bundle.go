package bpapi

import (
	"github.com/ipld/go-ipld-prime/schema"
)

func init() {
	TypeSystem.Accumulate(schema.SpawnStruct("Ident",
		[]schema.StructField{
			schema.SpawnStructField("publicKey", "String", false, false),
			schema.SpawnStructField("signature", "String", false, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnStruct("Bundle",
		[]schema.StructField{
			schema.SpawnStructField("manifest", "Manifest", false, false),
			schema.SpawnStructField("ident", "Ident", true, false),
		},
		schema.SpawnStructRepresentationMap(nil)))
	TypeSystem.Accumulate(schema.SpawnUnion("BundleCapsule",
		[]schema.TypeName{
			"Bundle",
		},
		schema.SpawnUnionRepresentationKeyed(map[string]schema.TypeName{
			"bundle.v1": "Bundle",
		})))
}

// Ident carries the signature over a manifest CID and the public key it
// verifies under. Both are hex encoded. The private key used to produce
// the signature never appears in any serial form.
type Ident struct {
	PublicKey string
	Signature string
}

// Bundle is the complete serial description of a produced package:
// the manifest (digest included) plus, if the package was signed, the ident.
// A bundle is immutable once produced; it is embedded in the archive and
// also written next to it for merge and deploy operations.
type Bundle struct {
	Manifest Manifest
	Ident    *Ident
}

// BundleCapsule is the versioning wrapper used in serial forms of Bundle.
type BundleCapsule struct {
	Bundle *Bundle
}
