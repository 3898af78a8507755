// internal/cli/cache.go
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-language/zule/pkg/supportcache"
)

var (
	syncRepo   string
	syncBranch string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the support library cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached support libraries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := supportcache.New(config.CacheDir)
		names, err := cache.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(out, "No support libraries in %s\n", cache.Dir())
			return nil
		}
		fmt.Fprintf(out, "Support libraries in %s:\n", cache.Dir())
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	},
}

var cacheSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download support libraries from the configured repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := config.CacheRepo
		if syncRepo != "" {
			repo = syncRepo
		}
		branch := config.CacheBranch
		if syncBranch != "" {
			branch = syncBranch
		}

		var progress io.Writer
		if config.Debug {
			progress = os.Stderr
		}

		cache := supportcache.New(config.CacheDir)
		imported, err := cache.Sync(cmd.Context(), repo, branch, progress, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d support libraries into %s\n", len(imported), cache.Dir())
		return nil
	},
}

func init() {
	cacheSyncCmd.Flags().StringVar(&syncRepo, "repo", "", "git repository holding the support libraries (default from config)")
	cacheSyncCmd.Flags().StringVar(&syncBranch, "branch", "", "branch to clone (default from config)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheSyncCmd)
}
