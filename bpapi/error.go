package bpapi

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/serum-errors/go-serum"
)

const (
	ECodeAlreadyExists    = "borderless-error-already-exists"
	ECodeArgument         = "borderless-error-invalid-argument"
	ECodeInitialization   = "borderless-error-initialization"
	ECodeInternal         = "borderless-error-internal"
	ECodeInvalidProject   = "borderless-error-invalid-project"
	ECodeIo               = "borderless-error-io"
	ECodeKeyInvalid       = "borderless-error-key-invalid"
	ECodeKeyNotFound      = "borderless-error-key-not-found"
	ECodeLinkStore        = "borderless-error-linkstore"
	ECodeManifestInvalid  = "borderless-error-manifest-invalid"
	ECodeMissing          = "borderless-error-missing"
	ECodeNetwork          = "borderless-error-network"
	ECodePackageIdInvalid = "borderless-error-packageid-invalid"
	ECodePackageInvalid   = "borderless-error-package-invalid"
	ECodeRemoteRejected   = "borderless-error-remote-rejected"
	ECodeSearching        = "borderless-error-searching-filesystem"
	ECodeSerialization    = "borderless-error-serialization"
	ECodeSignatureInvalid = "borderless-error-signature-invalid"
	ECodeUnknown          = "borderless-error-unknown"
)

// TerminalError emits an error on stdout as json, and halts immediately.
// In most cases, you should not use this method, and there will be a better place to send errors
// that will be more guaranteed to fit any protocols and scripts better;
// however, this is sometimes used in init methods (where we know no other protocol yet).
func TerminalError(err serum.ErrorInterface, exitCode int) {
	json.NewEncoder(os.Stdout).Encode(struct {
		Error serum.ErrorInterface `json:"error"`
	}{err})
	os.Exit(exitCode)
}

// ErrorUnknown is returned when an unknown error occurs
//
// Errors:
//
// - borderless-error-unknown --
func ErrorUnknown(msgTmpl string, cause error) error {
	return serum.Errorf(ECodeUnknown, "%s: %w", msgTmpl, cause)
}

// ErrorInternal is for miscellaneous errors that should be handled internally.
// In most cases, prefer to use more specific errors.
//
// Errors:
//
// - borderless-error-internal --
func ErrorInternal(msgTmpl string, cause error) error {
	return serum.Errorf(ECodeInternal, "%s: %w", msgTmpl, cause)
}

// ErrorIo wraps generic I/O errors from the Go stdlib
//
// Errors:
//
//    - borderless-error-io --
func ErrorIo(context string, path string, cause error) error {
	result := serum.Errorf(ECodeIo, "io error: %s: %w", context, cause)
	addDetails(result, [][2]string{{"context", context}, {"path", path}})
	return result
}

// ErrorSerialization is returned when a serialization or deserialization error occurs
//
// Errors:
//
//    - borderless-error-serialization --
func ErrorSerialization(context string, cause error) error {
	result := serum.Errorf(ECodeSerialization,
		"serialization error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
	})
	return result
}

// ErrorSearchingFilesystem is returned when an error occurs during search
//
// Errors:
//
//    - borderless-error-searching-filesystem --
func ErrorSearchingFilesystem(searchingFor string, cause error) error {
	result := serum.Errorf(ECodeSearching,
		"error while searching filesystem for %s: %w", searchingFor, cause)
	addDetails(result, [][2]string{
		{"searchingFor", searchingFor},
		// the cause is presumed to have any path(s) relevant.
	})
	return result
}

// ErrorInvalidProject is returned when a project directory fails structural validation,
// for example when a manifest names entry points that do not exist.
//
// Errors:
//
//    - borderless-error-invalid-project --
func ErrorInvalidProject(path string, reason string) error {
	return serum.Error(ECodeInvalidProject,
		serum.WithMessageTemplate("invalid project at {{path|q}}: {{reason}}"),
		serum.WithDetail("path", path),
		serum.WithDetail("reason", reason),
	)
}

// ErrorManifestInvalid is returned when a manifest contains invalid data
//
// Errors:
//
//    - borderless-error-manifest-invalid --
func ErrorManifestInvalid(reason string) error {
	return serum.Error(ECodeManifestInvalid,
		serum.WithMessageTemplate("invalid manifest: {{reason}}"),
		serum.WithDetail("reason", reason),
	)
}

// ErrorPackageIdInvalid is returned when a malformed PackageID is parsed
//
// Errors:
//
//    - borderless-error-packageid-invalid --
func ErrorPackageIdInvalid(id PackageID) error {
	return serum.Error(ECodePackageIdInvalid,
		serum.WithMessageTemplate("invalid PackageID: {{packageId}}"),
		serum.WithDetail("packageId", id.String()),
	)
}

// ErrorPackageInvalid is returned when an archive fails integrity verification:
// its contents no longer match the digest recorded in its manifest.
//
// Errors:
//
//    - borderless-error-package-invalid --
func ErrorPackageInvalid(reason string, deets ...[2]string) error {
	opts := make([]serum.WithConstruction, 0, len(deets)+1)
	for _, d := range deets {
		opts = append(opts, serum.WithDetail(d[0], d[1]))
	}
	opts = append(opts, serum.WithMessageLiteral("invalid package: "+reason))
	return serum.Error(ECodePackageInvalid, opts...)
}

// ErrorKeyNotFound is returned when the private key for signing cannot be loaded.
// This is a hard failure: signing is never silently skipped or retried.
//
// Errors:
//
//    - borderless-error-key-not-found --
func ErrorKeyNotFound(path string, cause error) error {
	result := serum.Errorf(ECodeKeyNotFound,
		"signing key not found at %q: %w", path, cause)
	addDetails(result, [][2]string{
		{"path", path},
	})
	return result
}

// ErrorKeyInvalid is returned when key material exists but cannot be parsed.
//
// Errors:
//
//    - borderless-error-key-invalid --
func ErrorKeyInvalid(path string, reason string) error {
	return serum.Error(ECodeKeyInvalid,
		serum.WithMessageTemplate("invalid key material at {{path|q}}: {{reason}}"),
		serum.WithDetail("path", path),
		serum.WithDetail("reason", reason),
	)
}

// ErrorSignatureInvalid is returned when a signature fails to verify against a digest.
//
// Errors:
//
//    - borderless-error-signature-invalid --
func ErrorSignatureInvalid(reason string) error {
	return serum.Error(ECodeSignatureInvalid,
		serum.WithMessageTemplate("signature invalid: {{reason}}"),
		serum.WithDetail("reason", reason),
	)
}

// ErrorNetwork wraps transport-level failures when talking to a node or registry.
// Errors of this code are the only ones the deploy and publish retry policies
// will retry.
//
// Errors:
//
//    - borderless-error-network --
func ErrorNetwork(context string, cause error) error {
	result := serum.Errorf(ECodeNetwork, "network error: %s: %w", context, cause)
	addDetails(result, [][2]string{
		{"context", context},
	})
	return result
}

// ErrorRemoteRejected is returned when a node or registry refuses a request.
// This is terminal; it is never retried.
//
// Errors:
//
//    - borderless-error-remote-rejected --
func ErrorRemoteRejected(endpoint string, status int, detail string) error {
	return serum.Error(ECodeRemoteRejected,
		serum.WithMessageTemplate("remote rejected request to {{endpoint}}: status {{status}}: {{detail}}"),
		serum.WithDetail("endpoint", endpoint),
		serum.WithDetail("status", strconv.Itoa(status)),
		serum.WithDetail("detail", detail),
	)
}

// ErrorLinkStore is returned when an error occurs when handling the link store
//
// Errors:
//
//    - borderless-error-linkstore --
func ErrorLinkStore(path string, cause error) error {
	result := serum.Errorf(ECodeLinkStore,
		"error handling link store at %q: %w", path, cause)
	addDetails(result, [][2]string{
		{"linkStorePath", path},
	})
	return result
}

// ErrorFileAlreadyExists is used when a file already exists
//
// Errors:
//
//    - borderless-error-already-exists --
func ErrorFileAlreadyExists(path string) error {
	return serum.Error(ECodeAlreadyExists,
		serum.WithMessageTemplate("file already exists at path: {{path|q}}"),
		serum.WithDetail("path", path),
	)
}

// ErrorFileMissing is used when an expected file does not exist
//
// Errors:
//
//    - borderless-error-missing --
func ErrorFileMissing(path string) error {
	return serum.Error(ECodeMissing,
		serum.WithMessageTemplate("file missing at path: {{path|q}}"),
		serum.WithDetail("path", path),
	)
}

// addDetails is a helper method to get around the fact that doing a type coercion within
// an exported function is not currently allowed by serum.
// We won't need this if serum supports an equivalent to %w in message templates OR
// supports adding details when using serum.Errorf
func addDetails(err error, details [][2]string) {
	s := err.(*serum.ErrorValue)
	s.Data.Details = append(s.Data.Details, details...)
}
