package dab

import (
	"io/fs"
	"path/filepath"

	"github.com/serum-errors/go-serum"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// FindManifest looks for a manifest file in the given search path,
// popping path segments and walking up towards the filesystem root
// until one is found.
//
// The 'fsys' parameter is typically `os.DirFS("/")` except in test environments.
//
// The 'basisPath' and 'searchPath' parameters work together to specify which paths to inspect.
// The `{basisPath}/{searchPath}` path is searched first;
// then each segment of 'searchPath' is popped and the search repeated,
// until 'searchPath' is exhausted.
// Neither value should have a leading slash (as is typical for APIs using FS).
//
// The manifest (if any), the directory it was found in, and the remaining
// search path are returned.  If no manifest is found, the manifest pointer
// is nil and no error is raised.
//
// Errors:
//
//    - borderless-error-invalid-argument -- when searchPath is absolute
//    - borderless-error-searching-filesystem -- when the search of the filesystem produces an invalid result
func FindManifest(fsys fs.FS, basisPath, searchPath string) (
	m *bpapi.Manifest, foundDir string, remainingSearchPath string, err error,
) {
	if filepath.IsAbs(searchPath) {
		return nil, "", searchPath, serum.Error(bpapi.ECodeArgument,
			serum.WithMessageTemplate("search path {{path|q}} may not be an absolute path"),
			serum.WithDetail("path", searchPath),
		)
	}
	remainingSearchPath = searchPath
	for {
		dir := filepath.Join(basisPath, remainingSearchPath)
		candidate := filepath.Join(dir, MagicFilename_Manifest)
		mf, err := ManifestFromFile(fsys, candidate)
		switch {
		case err == nil:
			return &mf, dir, filepath.Dir(remainingSearchPath), nil
		case serum.Code(err) == bpapi.ECodeMissing:
			// keep searching upward
		default:
			// Any other error means our search has blind spots: error out.
			return nil, "", remainingSearchPath, bpapi.ErrorSearchingFilesystem("loading manifest", err)
		}
		if len(remainingSearchPath) <= 1 || remainingSearchPath == "." {
			return nil, "", "", nil
		}
		remainingSearchPath = filepath.Dir(remainingSearchPath)
	}
}
