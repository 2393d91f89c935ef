// Package source probes the document corpus checkout for build metadata.
package source

import (
	git "github.com/go-git/go-git/v5"
)

// HeadRevision returns the short commit hash of the checkout containing
// dir, or "" when dir is not inside a git repository. Best effort only;
// builds work the same either way.
func HeadRevision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()[:12]
}
