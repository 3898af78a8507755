// internal/cli/inspect.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/machotool"
	"github.com/arc-language/zule/pkg/payload"
)

var inspectSubstitute bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [binary]",
	Short: "Show the load commands of a Mach-O binary",
	Long: `Display the install name and dependencies of a dylib or executable,
marking the references zule would rewrite and the support libraries they need.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectSubstitute, "substitute", "t", false, "match against substitute instead of substrate")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	id, err := machotool.SelfReference(path)
	if err != nil {
		return fmt.Errorf("reading install name: %w", err)
	}
	deps, err := machotool.LoadDependencies(path)
	if err != nil {
		return fmt.Errorf("reading load commands: %w", err)
	}

	runtime := core.RuntimeSubstrate
	if inspectSubstitute {
		runtime = core.RuntimeSubstitute
	}
	table := payload.SupportTable(runtime)

	if id != "" {
		fmt.Fprintf(out, "Install name: %s\n", id)
	}
	if encrypted, err := machotool.IsEncrypted(path); err == nil {
		fmt.Fprintf(out, "Encrypted: %t\n", encrypted)
	}

	fmt.Fprintf(out, "Dependencies (%d):\n", len(deps))
	for _, dep := range deps {
		marker := " "
		if payload.IsRewriteCandidate(dep) {
			marker = "*"
		}
		line := fmt.Sprintf("  %s %s", marker, dep)
		if marker == "*" {
			if lib, ok := payload.MatchSupport(table, dep); ok {
				line += fmt.Sprintf(" -> %s", lib.Root())
			}
		}
		fmt.Fprintln(out, line)
	}

	return nil
}
