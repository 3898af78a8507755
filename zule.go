// zule.go
package zule

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/bundle"
	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/deb"
	"github.com/arc-language/zule/pkg/inject"
	"github.com/arc-language/zule/pkg/machotool"
)

// Re-export core types for convenience
type (
	Config        = core.Config
	ToolsConfig   = core.ToolsConfig
	Options       = core.Options
	InjectOptions = core.InjectOptions
	InjectMode    = core.InjectMode
	HookRuntime   = core.HookRuntime
	Report        = inject.Report
)

// Re-export mode constants
const (
	InjectRpath       = core.InjectRpath
	InjectExecutable  = core.InjectExecutable
	RuntimeSubstrate  = core.RuntimeSubstrate
	RuntimeSubstitute = core.RuntimeSubstitute
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Result describes a finished patch run
type Result struct {
	Output    string
	Changed   bool // False when nothing was modified and no output was written
	Injection *inject.Report
}

// Patcher modifies app bundles
type Patcher struct {
	config   *core.Config
	editor   core.BinaryEditor
	unpacker core.Unpacker
	logger   *log.Logger
}

// NewPatcher creates a Patcher backed by the configured external tools
func NewPatcher(config *core.Config, logger *log.Logger) *Patcher {
	if config == nil {
		config = core.DefaultConfig()
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "zule"})
	}
	return NewPatcherWith(config, machotool.NewToolchain(config.Tools, logger), deb.NewUnpacker(logger), logger)
}

// NewPatcherWith creates a Patcher with explicit capabilities
func NewPatcherWith(config *core.Config, editor core.BinaryEditor, unpacker core.Unpacker, logger *log.Logger) *Patcher {
	if config == nil {
		config = core.DefaultConfig()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Patcher{config: config, editor: editor, unpacker: unpacker, logger: logger}
}

// Patch applies opts. Invalid options fail before the input is touched. The
// scratch directory is removed on success and kept for inspection on failure.
func (p *Patcher) Patch(ctx context.Context, opts Options) (*Result, error) {
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = p.config.CompressionLevel
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.NeedsTools() {
		if checker, ok := p.editor.(interface{ Check() error }); ok {
			if err := checker.Check(); err != nil {
				return nil, err
			}
		}
	}
	if opts.Inject.CacheDir == "" {
		opts.Inject.CacheDir = p.config.CacheDir
	}

	if p.config.ScratchDir != "" {
		if err := os.MkdirAll(p.config.ScratchDir, 0755); err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(p.config.ScratchDir, "zule-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}

	result, err := p.patch(ctx, opts, scratch)
	if err != nil {
		p.logger.Error("patch failed, keeping temporary directory", "path", scratch)
		return nil, err
	}

	if p.config.KeepScratch {
		p.logger.Info("kept temporary directory", "path", scratch)
	} else {
		p.logger.Debug("deleting temporary directory", "path", scratch)
		if err := os.RemoveAll(scratch); err != nil {
			p.logger.Warn("couldn't delete temporary directory", "path", scratch, "err", err)
		}
	}
	return result, nil
}

func (p *Patcher) patch(ctx context.Context, opts Options, scratch string) (*Result, error) {
	b, err := bundle.Open(opts.Input, filepath.Join(scratch, "app"), p.logger)
	if err != nil {
		return nil, err
	}
	result := &Result{}

	if opts.RemoveExtensions {
		if _, err := b.RemoveExtensions(); err != nil {
			return nil, err
		}
	}

	if len(opts.Inject.Tweaks) > 0 {
		injectOpts := opts.Inject
		injectOpts.ScratchDir = filepath.Join(scratch, "inject")
		engine, err := inject.NewEngine(p.editor, p.unpacker, injectOpts, p.logger)
		if err != nil {
			return nil, err
		}
		report, err := engine.Run(ctx, inject.Target{Root: b.Path, Executable: b.Executable})
		if err != nil {
			return nil, err
		}
		result.Injection = report
		b.MarkChanged()
	}

	if opts.RemoveSupportedDevices {
		b.RemoveSupportedDevices()
	}
	if opts.RemoveWatchApp {
		if _, err := b.RemoveWatchApp(); err != nil {
			return nil, err
		}
	}
	if opts.MinimumOS != "" {
		if _, err := b.SetMinimumOS(opts.MinimumOS); err != nil {
			return nil, err
		}
	}
	if opts.EnableDocuments {
		b.EnableDocuments()
	}
	if opts.Name != "" {
		b.SetName(opts.Name)
	}
	if opts.Version != "" {
		b.SetVersion(opts.Version)
	}
	if opts.BundleID != "" {
		if _, err := b.SetBundleID(opts.BundleID); err != nil {
			return nil, err
		}
	}
	b.AddURLSchemes(opts.URLSchemes)
	if opts.MergePlist != "" {
		if _, err := b.MergePlist(opts.MergePlist); err != nil {
			return nil, err
		}
	}
	if opts.Icon != "" {
		if err := b.SetIcon(opts.Icon); err != nil {
			return nil, err
		}
	}

	if err := b.Save(); err != nil {
		return nil, err
	}

	if opts.Fakesign {
		if _, err := b.Fakesign(ctx, p.editor); err != nil {
			return nil, err
		}
	}
	if opts.Entitlements != "" {
		b.SignEntitlements(ctx, p.editor, opts.Entitlements)
	}

	if !b.Changed() {
		p.logger.Warn("nothing was changed, output will not be created")
		return result, nil
	}

	if err := b.Package(opts.Output, opts.CompressionLevel); err != nil {
		return nil, err
	}
	result.Output = opts.Output
	result.Changed = true
	return result, nil
}
