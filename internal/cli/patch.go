// internal/cli/patch.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/zule"
	"github.com/arc-language/zule/pkg/core"
)

var (
	patchOpts  core.Options
	executable bool
	substitute bool
)

var patchCmd = &cobra.Command{
	Use:   "patch -i <app> -o <output> [flags]",
	Short: "Inject tweaks and edit an ipa or app",
	Long: `Open an ipa or app, inject the given tweaks, apply metadata edits and
write the result. Tweaks may be .dylib, .framework, .bundle, .appex or .deb.`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

func init() {
	f := patchCmd.Flags()
	f.StringVarP(&patchOpts.Input, "input", "i", "", "the .ipa/.app to patch")
	f.StringVarP(&patchOpts.Output, "output", "o", "", "the name of the patched .ipa/.app that will be created")
	f.StringArrayVarP(&patchOpts.Inject.Tweaks, "files", "f", nil, "tweak files to inject into the ipa")
	f.StringVarP(&patchOpts.Name, "name", "n", "", "modify the app's name")
	f.StringVar(&patchOpts.Version, "app-version", "", "modify the app's version")
	f.StringVarP(&patchOpts.BundleID, "bundle-id", "b", "", "modify the app's bundle id")
	f.StringVarP(&patchOpts.MinimumOS, "minimum-os", "m", "", "change MinimumOSVersion")
	f.StringVarP(&patchOpts.Icon, "icon", "k", "", "an image file to use as the app icon")
	f.StringVarP(&patchOpts.Entitlements, "entitlements", "x", "", "add or modify entitlements of the main executable")
	f.StringVarP(&patchOpts.MergePlist, "merge-plist", "l", "", "a plist to merge with the app's Info.plist")
	f.StringArrayVarP(&patchOpts.URLSchemes, "url-scheme", "r", nil, "url schemes to add")
	f.IntVarP(&patchOpts.CompressionLevel, "compression", "c", 0, "the compression level of the ipa (1-9, default from config)")
	f.BoolVarP(&patchOpts.RemoveSupportedDevices, "remove-supported-devices", "u", false, "remove UISupportedDevices")
	f.BoolVarP(&patchOpts.RemoveWatchApp, "remove-watch", "w", false, "remove the watch app")
	f.BoolVarP(&patchOpts.EnableDocuments, "documents", "d", false, "enable documents support")
	f.BoolVarP(&patchOpts.Fakesign, "fakesign", "s", false, "fakesign all binaries for use with appsync/trollstore")
	f.BoolVarP(&patchOpts.RemoveExtensions, "remove-extensions", "e", false, "remove app extensions")
	f.BoolVarP(&executable, "executable-path", "p", false, "inject into @executable_path")
	f.BoolVarP(&substitute, "substitute", "t", false, "use substitute instead of substrate")
	f.StringVar(&patchOpts.Inject.CacheDir, "cache-dir", "", "support library cache (default from config)")

	patchCmd.MarkFlagRequired("input")
	patchCmd.MarkFlagRequired("output")
	patchCmd.MarkFlagsMutuallyExclusive("executable-path", "substitute")
}

func runPatch(cmd *cobra.Command, args []string) error {
	opts := patchOpts
	if executable {
		opts.Inject.Mode = core.InjectExecutable
	}
	if substitute {
		opts.Inject.Runtime = core.RuntimeSubstitute
	}

	patcher := zule.NewPatcher(config, logger)
	result, err := patcher.Patch(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if result.Changed {
		fmt.Fprintln(cmd.OutOrStdout(), result.Output)
	}
	return nil
}
