// internal/cli/root.go
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arc-language/zule/pkg/core"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile string
	debug   bool
	config  *core.Config
	logger  *log.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "zule",
	Short: "Inject tweaks into iOS apps",
	Long: `zule - iOS app patcher

Injects dylibs, frameworks and .deb tweaks into an ipa or app, fixes their
dependencies, supplies the support libraries they need and edits app metadata.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() error {
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/zule/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "zule"})

	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		logger.Error("loading config", "err", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if debug {
		config.Debug = true
	}
	if config.Debug {
		logger.SetLevel(log.DebugLevel)
	}
}
