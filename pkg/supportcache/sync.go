// pkg/supportcache/sync.go
package supportcache

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/arc-language/zule/pkg/core"
)

// Sync shallow-clones repo at branch and imports its libraries into the cache
func (c *Cache) Sync(ctx context.Context, repo, branch string, progress io.Writer, logger *log.Logger) ([]string, error) {
	if repo == "" {
		return nil, fmt.Errorf("%w: no cache repository configured (set cache_repo)", core.ErrInvalidInput)
	}
	if branch == "" {
		branch = "main"
	}

	tempDir, err := os.MkdirTemp("", "zule-cache-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger.Infof("updating support libraries from %s...", repo)

	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:           repo,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
		Progress:      progress,
	})
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %w", err)
	}

	imported, err := c.Import(tempDir)
	if err != nil {
		return imported, err
	}
	if len(imported) == 0 {
		logger.Warn("repository contained no support libraries", "repo", repo)
	}
	logger.Infof("support libraries updated: %d entries", len(imported))
	return imported, nil
}
