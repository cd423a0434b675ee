// Package discover derives repository identity facts from the worktree.
package discover

import (
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// Info is the derived repository identity.
type Info struct {
	Name     string
	RootPath string
}

// Repository names the repository at root. When the directory is a git
// worktree with an origin remote, the name is the final path segment of the
// remote URL with any ".git" suffix removed; otherwise it is the directory
// basename. Both values are read from disk, never synthesized.
func Repository(root string) Info {
	root = filepath.Clean(root)
	info := Info{
		Name:     filepath.Base(root),
		RootPath: root,
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return info
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil || len(remote.Config().URLs) == 0 {
		return info
	}

	if name := nameFromRemoteURL(remote.Config().URLs[0]); name != "" {
		info.Name = name
	}
	return info
}

func nameFromRemoteURL(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if idx := strings.LastIndexAny(url, "/:"); idx >= 0 {
		url = url[idx+1:]
	}
	return url
}
