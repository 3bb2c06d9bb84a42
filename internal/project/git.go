package project

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CloneOptions configures CloneShallow.
type CloneOptions struct {
	// Ref is a branch name to check out. Empty uses the remote HEAD.
	Ref string

	// Progress receives the remote's progress output (may be nil).
	Progress io.Writer
}

// CloneShallow clones repoURL with depth 1 into a new temporary directory.
// The returned cleanup removes the directory; it is safe to call on error
// paths once CloneShallow has returned successfully.
func CloneShallow(ctx context.Context, repoURL string, opts CloneOptions) (string, func(), error) {
	if strings.TrimSpace(repoURL) == "" {
		return "", nil, fmt.Errorf("repository URL must not be empty")
	}

	tmpDir, err := os.MkdirTemp("", "coredeck-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	cloneOpts := &git.CloneOptions{
		URL:      repoURL,
		Progress: opts.Progress,
		Depth:    1,
	}
	if opts.Ref != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, tmpDir, false, cloneOpts); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	return tmpDir, cleanup, nil
}

// RepoName derives a folder name from a repository URL.
//
//	RepoName("https://github.com/acme/shop.git") → "shop"
//	RepoName("git@github.com:acme/shop")         → "shop"
func RepoName(repoURL string) string {
	name := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		return "repo"
	}
	return name
}
