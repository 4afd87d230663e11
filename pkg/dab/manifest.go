package dab

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec/json"
	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

const (
	// MagicFilename_Manifest is the project descriptor file name.
	MagicFilename_Manifest = "Manifest.json"
	// MagicFilename_Bundle is the produced bundle file name.
	MagicFilename_Bundle = "bundle.json"
	// ArchiveSuffix is the file extension of produced package archives.
	ArchiveSuffix = ".bpkg"
)

var (
	rePackageName = regexp.MustCompile(`^[a-zA-Z0-9][-_a-zA-Z0-9]*$`)
	reSemVer      = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+(-[-.0-9a-zA-Z]+)?(\+[-.0-9a-zA-Z]+)?$`)
	// package names share length rules with the first segment of DNS labels
	packageNameMaxLength = 50
)

// ValidatePackageName checks the package name for invalid strings.
//
// Package names have the following rules:
//    - Name MUST start with an ASCII alpha-numeric character.
//    - Name MUST contain only ASCII alpha-numeric characters plus hyphens '-' and underscores '_'.
//    - Name MUST be 50 characters or less.
//
// Errors:
//
//    - borderless-error-manifest-invalid -- when the package name is invalid
func ValidatePackageName(name bpapi.PackageName) error {
	s := string(name)
	if !rePackageName.MatchString(s) {
		return serum.Error(bpapi.ECodeManifestInvalid,
			serum.WithMessageLiteral("package name must start with an alphanumeric character and consist of alphanumeric characters, '-', or '_'"),
			serum.WithDetail("name", fmt.Sprintf("%q", s)),
		)
	}
	if len(s) > packageNameMaxLength {
		return serum.Errorf(bpapi.ECodeManifestInvalid, "package name may not be longer than %d characters", packageNameMaxLength)
	}
	return nil
}

// ValidateVersion checks that a version string is a plain semantic version.
//
// Errors:
//
//    - borderless-error-manifest-invalid -- when the version is not a semantic version
func ValidateVersion(version bpapi.SemVer) error {
	if !reSemVer.MatchString(string(version)) {
		return serum.Error(bpapi.ECodeManifestInvalid,
			serum.WithMessageTemplate("version {{version|q}} is not a semantic version"),
			serum.WithDetail("version", string(version)),
		)
	}
	return nil
}

// normalizeManifest smooths over codec quirks on decode.
// bindnode hands back a nil slice for an empty serial list; loaded
// manifests always carry a non-nil Dependencies so they compare equal to
// constructed ones.
func normalizeManifest(m *bpapi.Manifest) {
	if m.Dependencies == nil {
		m.Dependencies = []bpapi.Dependency{}
	}
}

// validateManifest applies the structural rules shared by all manifest loads.
func validateManifest(m *bpapi.Manifest) error {
	if err := ValidatePackageName(m.Name); err != nil {
		return err
	}
	if err := ValidateVersion(m.Version); err != nil {
		return err
	}
	switch m.Kind {
	case bpapi.PackageKind_Contract, bpapi.PackageKind_Agent:
	default:
		return bpapi.ErrorManifestInvalid(fmt.Sprintf("unknown package kind %q", m.Kind))
	}
	if len(m.EntryPoints) == 0 {
		return bpapi.ErrorManifestInvalid("manifest must name at least one entry point")
	}
	for _, ep := range m.EntryPoints {
		p := string(ep)
		if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
			return bpapi.ErrorManifestInvalid(fmt.Sprintf("entry point %q must be a clean path relative to the project root", p))
		}
	}
	return nil
}

// ManifestFromFile loads a bpapi.Manifest from a filesystem path.
//
// In typical usage, the filename parameter will have the suffix of MagicFilename_Manifest.
//
// Errors:
//
//    - borderless-error-io -- for errors reading from fsys
//    - borderless-error-missing -- when the file does not exist
//    - borderless-error-serialization -- for errors from trying to parse the data as a Manifest
//    - borderless-error-manifest-invalid -- when the manifest data is invalid
func ManifestFromFile(fsys fs.FS, filename string) (bpapi.Manifest, error) {
	const situation = "loading a manifest"
	if strings.HasPrefix(filename, "/") {
		filename = filename[1:]
	}
	f, err := fs.ReadFile(fsys, filename)
	if err != nil {
		if os.IsNotExist(err) {
			return bpapi.Manifest{}, bpapi.ErrorFileMissing(filename)
		}
		return bpapi.Manifest{}, bpapi.ErrorIo(situation, filename, err)
	}

	capsule := bpapi.ManifestCapsule{}
	_, err = ipld.Unmarshal(f, json.Decode, &capsule, bpapi.TypeSystem.TypeByName("ManifestCapsule"))
	if err != nil {
		return bpapi.Manifest{}, bpapi.ErrorSerialization(situation, err)
	}
	if capsule.Manifest == nil {
		// ... this isn't really reachable.
		return bpapi.Manifest{}, bpapi.ErrorSerialization(situation, fmt.Errorf("no v1 Manifest in ManifestCapsule"))
	}

	normalizeManifest(capsule.Manifest)
	if err := validateManifest(capsule.Manifest); err != nil {
		return bpapi.Manifest{}, err
	}
	return *capsule.Manifest, nil
}

// SaveManifest writes a manifest capsule to path.
//
// Errors:
//
//    - borderless-error-serialization -- when the manifest cannot be serialized
//    - borderless-error-io -- when the file cannot be written
func SaveManifest(path string, m bpapi.Manifest) error {
	capsule := bpapi.ManifestCapsule{Manifest: &m}
	serial, err := ipld.Marshal(json.Encode, &capsule, bpapi.TypeSystem.TypeByName("ManifestCapsule"))
	if err != nil {
		return bpapi.ErrorSerialization("serializing manifest", err)
	}
	if err := os.WriteFile(path, serial, 0644); err != nil {
		return bpapi.ErrorIo("writing manifest", path, err)
	}
	return nil
}

// BundleFromFile loads a bpapi.Bundle from a filesystem path.
//
// Errors:
//
//    - borderless-error-io -- for errors reading from fsys
//    - borderless-error-missing -- when the file does not exist
//    - borderless-error-serialization -- for errors from trying to parse the data as a Bundle
//    - borderless-error-manifest-invalid -- when the contained manifest is invalid
func BundleFromFile(fsys fs.FS, filename string) (bpapi.Bundle, error) {
	const situation = "loading a bundle"
	if strings.HasPrefix(filename, "/") {
		filename = filename[1:]
	}
	f, err := fs.ReadFile(fsys, filename)
	if err != nil {
		if os.IsNotExist(err) {
			return bpapi.Bundle{}, bpapi.ErrorFileMissing(filename)
		}
		return bpapi.Bundle{}, bpapi.ErrorIo(situation, filename, err)
	}
	return DecodeBundle(f)
}

// DecodeBundle parses serial bundle data.
//
// Errors:
//
//    - borderless-error-serialization -- for errors from trying to parse the data as a Bundle
//    - borderless-error-manifest-invalid -- when the contained manifest is invalid
func DecodeBundle(serial []byte) (bpapi.Bundle, error) {
	const situation = "decoding a bundle"
	capsule := bpapi.BundleCapsule{}
	_, err := ipld.Unmarshal(serial, json.Decode, &capsule, bpapi.TypeSystem.TypeByName("BundleCapsule"))
	if err != nil {
		return bpapi.Bundle{}, bpapi.ErrorSerialization(situation, err)
	}
	if capsule.Bundle == nil {
		// ... this isn't really reachable.
		return bpapi.Bundle{}, bpapi.ErrorSerialization(situation, fmt.Errorf("no v1 Bundle in BundleCapsule"))
	}
	normalizeManifest(&capsule.Bundle.Manifest)
	if err := validateManifest(&capsule.Bundle.Manifest); err != nil {
		return bpapi.Bundle{}, err
	}
	return *capsule.Bundle, nil
}

// EncodeBundle produces the serial form of a bundle.
//
// Errors:
//
//    - borderless-error-serialization -- when the bundle cannot be serialized
func EncodeBundle(b bpapi.Bundle) ([]byte, error) {
	capsule := bpapi.BundleCapsule{Bundle: &b}
	serial, err := ipld.Marshal(json.Encode, &capsule, bpapi.TypeSystem.TypeByName("BundleCapsule"))
	if err != nil {
		return nil, bpapi.ErrorSerialization("serializing bundle", err)
	}
	return serial, nil
}

// SaveBundle writes a bundle capsule to path.
//
// Errors:
//
//    - borderless-error-serialization -- when the bundle cannot be serialized
//    - borderless-error-io -- when the file cannot be written
func SaveBundle(path string, b bpapi.Bundle) error {
	serial, err := EncodeBundle(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, serial, 0644); err != nil {
		return bpapi.ErrorIo("writing bundle", path, err)
	}
	return nil
}
