// pkg/inject/injector.go
package inject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/fsutil"
	"github.com/arc-language/zule/pkg/payload"
)

const (
	plugInsDir      = "PlugIns"
	appEntitlements = "app.entitlements"
	executableRpath = core.TokenExecutablePath + "/Frameworks"
)

// Injector owns every change to the main executable and places payloads
// into the bundle
type Injector struct {
	editor   core.BinaryEditor
	logger   *log.Logger
	target   Target
	mode     core.InjectMode
	scratch  string
	entsFile string
	loaded   map[string]bool
}

// NewInjector creates an Injector for target
func NewInjector(editor core.BinaryEditor, target Target, mode core.InjectMode, scratch string, logger *log.Logger) *Injector {
	return &Injector{
		editor:  editor,
		logger:  logger,
		target:  target,
		mode:    mode,
		scratch: scratch,
		loaded:  make(map[string]bool),
	}
}

// Root returns the absolute injection root
func (in *Injector) Root() string {
	return in.target.injectRoot(in.mode.Dir())
}

// Prepare runs the one-time steps on the main executable and creates the
// directories the inputs will need. It must run before any payload is rewritten.
func (in *Injector) Prepare(ctx context.Context, inputs []payload.TweakInput) error {
	main := in.target.Executable

	ents, err := in.editor.Entitlements(ctx, main)
	if err != nil {
		return err
	}
	if len(ents) > 0 {
		in.entsFile = filepath.Join(in.scratch, appEntitlements)
		if err := os.WriteFile(in.entsFile, ents, 0644); err != nil {
			return fmt.Errorf("failed to save app entitlements: %w", err)
		}
		in.logger.Debug("captured app entitlements", "bytes", len(ents))
	}

	if err := in.editor.StripSignature(ctx, main); err != nil {
		return err
	}

	deps, err := in.editor.ListLoadDependencies(ctx, main)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		in.loaded[dep] = true
	}

	if payload.HasKind(inputs, payload.KindExtension) {
		if err := os.MkdirAll(filepath.Join(in.target.Root, plugInsDir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", plugInsDir, err)
		}
	}

	if in.mode == core.InjectRpath && payload.HasKind(inputs, payload.KindSharedObject, payload.KindFramework, payload.KindPackage) {
		if err := os.MkdirAll(in.Root(), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", in.mode.Dir(), err)
		}
		// Most apps already carry this rpath; install_name_tool refuses duplicates.
		if err := in.editor.AddRunpath(ctx, main, executableRpath); err != nil {
			in.logger.Debug("rpath not added", "rpath", executableRpath, "err", err)
		}
	}
	return nil
}

// CopyCommon copies directly given common libraries into the injection root
// as they are. They are never rewritten or registered.
func (in *Injector) CopyCommon(inputs []payload.TweakInput) ([]Outcome, error) {
	var outcomes []Outcome
	for _, input := range inputs {
		if !input.Common || input.Kind == payload.KindPackage {
			continue
		}
		dest := filepath.Join(in.Root(), input.Name)
		out, err := in.place(input.Name, input.Path, dest)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// Inject registers and copies every planned item. Shared objects go first
// and replace stale copies; every other kind is skipped when already present.
func (in *Injector) Inject(ctx context.Context, plan *Plan) ([]Outcome, error) {
	var outcomes []Outcome

	for _, item := range plan.Items {
		if item.Kind != payload.KindSharedObject {
			continue
		}
		if err := in.register(ctx, item.Reference); err != nil {
			return outcomes, err
		}

		status := StatusInjected
		if fsutil.Exists(item.Dest) {
			if err := os.RemoveAll(item.Dest); err != nil {
				return outcomes, fmt.Errorf("failed to remove stale %s: %w", item.Name, err)
			}
			status = StatusReplaced
		}
		if err := fsutil.Copy(item.Source, item.Dest); err != nil {
			return outcomes, fmt.Errorf("failed to copy %s: %w", item.Name, err)
		}
		if status == StatusReplaced {
			in.logger.Infof("replaced existing %s", item.Name)
		} else {
			in.logger.Infof("injected %s", item.Name)
		}
		outcomes = append(outcomes, Outcome{Name: item.Name, Dest: item.Dest, Status: status})
	}

	for _, item := range plan.Items {
		if item.Kind == payload.KindSharedObject {
			continue
		}
		out, err := in.place(item.Name, item.Source, item.Dest)
		if err != nil {
			return outcomes, err
		}
		if out.Status != StatusSkipped && item.Registered() {
			if err := in.register(ctx, item.Reference); err != nil {
				return outcomes, err
			}
			out.Status = StatusInjected
			in.logger.Infof("injected %s", item.Name)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

// Finish restores the entitlements captured by Prepare
func (in *Injector) Finish(ctx context.Context) error {
	if in.entsFile == "" {
		return nil
	}
	if err := in.editor.Resign(ctx, in.target.Executable, in.entsFile); err != nil {
		return err
	}
	in.logger.Info("restored app entitlements")
	return nil
}

// place copies src to dest unless dest already exists
func (in *Injector) place(name, src, dest string) (Outcome, error) {
	if fsutil.Exists(dest) {
		in.logger.Infof("existing %s found, skipping", name)
		return Outcome{Name: name, Dest: dest, Status: StatusSkipped}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Outcome{}, err
	}
	if err := fsutil.Copy(src, dest); err != nil {
		return Outcome{}, fmt.Errorf("failed to copy %s: %w", name, err)
	}
	in.logger.Debug("copied", "name", name, "dest", dest)
	return Outcome{Name: name, Dest: dest, Status: StatusCopied}, nil
}

// register adds reference to the main executable once
func (in *Injector) register(ctx context.Context, reference string) error {
	if in.loaded[reference] {
		in.logger.Debug("already a load dependency", "reference", reference)
		return nil
	}
	if err := in.editor.InsertLoadDependency(ctx, in.target.Executable, reference, true); err != nil {
		return err
	}
	in.loaded[reference] = true
	return nil
}
