package packcli

import (
	"errors"

	"github.com/go-git/go-git/v5"

	"github.com/borderless-technologies/borderless-cli/bpapi"
)

// collectGitInfo inspects the git repository containing projectDir,
// if there is one.  Projects outside any repository yield nil.
//
// Errors:
//
//    - borderless-error-io -- when the repository exists but cannot be inspected
func collectGitInfo(projectDir string) (*bpapi.GitInfo, error) {
	repo, err := git.PlainOpenWithOptions(projectDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, bpapi.ErrorIo("opening git repository", projectDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		// A fresh repository with no commits yet has no usable head.
		return nil, nil
	}
	info := &bpapi.GitInfo{
		Commit: head.Hash().String(),
	}
	if head.Name().IsBranch() {
		branch := head.Name().Short()
		info.Branch = &branch
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, bpapi.ErrorIo("opening git worktree", projectDir, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, bpapi.ErrorIo("reading git status", projectDir, err)
	}
	info.Dirty = !status.IsClean()
	return info, nil
}
