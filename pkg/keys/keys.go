/*
	Package keys loads ed25519 signing keys from PEM files and produces and
	verifies the idents that bind a manifest to a public key.

	The private key is read for the duration of a single signing call and is
	never serialized into any API type. A missing or unreadable key is a hard
	failure: commands never fall back to unsigned output once a key was asked for.
*/
package keys

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// PEM block types accepted for private keys.
const (
	pemTypePKCS8      = "PRIVATE KEY"
	pemTypeRawEd25519 = "ED25519 PRIVATE KEY"
)

// LoadSigningKey reads an ed25519 private key from a PEM file.
// Both PKCS#8 ("PRIVATE KEY") and raw 32-byte seed ("ED25519 PRIVATE KEY")
// blocks are accepted.
//
// Errors:
//
//    - borderless-error-key-not-found -- when the file does not exist or cannot be read
//    - borderless-error-key-invalid -- when the file content is not a usable ed25519 key
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bpapi.ErrorKeyNotFound(path, err)
	}
	return parseSigningKey(path, data)
}

func parseSigningKey(path string, data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, bpapi.ErrorKeyInvalid(path, "no PEM block found")
	}
	switch block.Type {
	case pemTypePKCS8:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, bpapi.ErrorKeyInvalid(path, fmt.Sprintf("PKCS#8 parse failed: %s", err))
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, bpapi.ErrorKeyInvalid(path, fmt.Sprintf("PKCS#8 key is %T, not ed25519", parsed))
		}
		return key, nil
	case pemTypeRawEd25519:
		if len(block.Bytes) != ed25519.SeedSize {
			return nil, bpapi.ErrorKeyInvalid(path, fmt.Sprintf("expected %d seed bytes, got %d", ed25519.SeedSize, len(block.Bytes)))
		}
		return ed25519.NewKeyFromSeed(block.Bytes), nil
	default:
		return nil, bpapi.ErrorKeyInvalid(path, fmt.Sprintf("unsupported PEM type %q", block.Type))
	}
}

// Sign produces an ident binding the given manifest cid to the key's public half.
func Sign(cid bpapi.ManifestCID, key ed25519.PrivateKey) bpapi.Ident {
	sig := ed25519.Sign(key, []byte(cid))
	return bpapi.Ident{
		PublicKey: hex.EncodeToString(key.Public().(ed25519.PublicKey)),
		Signature: hex.EncodeToString(sig),
	}
}

// Verify checks an ident against a manifest cid.
//
// Errors:
//
//    - borderless-error-signature-invalid -- when the ident is malformed or does not verify
func Verify(cid bpapi.ManifestCID, ident bpapi.Ident) error {
	pub, err := hex.DecodeString(ident.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return bpapi.ErrorSignatureInvalid("malformed public key")
	}
	sig, err := hex.DecodeString(ident.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return bpapi.ErrorSignatureInvalid("malformed signature")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(cid), sig) {
		return bpapi.ErrorSignatureInvalid("signature does not verify against manifest digest")
	}
	return nil
}
