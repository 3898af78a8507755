// internal/cli/version.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "zule version %s\n", Version)
		fmt.Fprintln(cmd.OutOrStdout(), "iOS tweak injector")
		fmt.Fprintln(cmd.OutOrStdout(), "https://github.com/arc-language/zule")
	},
}
