// pkg/inject/engine.go
package inject

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/bundle"
	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
	"github.com/arc-language/zule/pkg/staging"
	"github.com/arc-language/zule/pkg/supportcache"
)

// Scratch layout
const (
	stagingDir  = "staging"
	packagesDir = "debs"
	entsDir     = "entitlements"
)

// Engine runs one injection against a bundle. Every step is sequential: the
// staging store, the bundle tree and the requirement set are shared state.
type Engine struct {
	editor   core.BinaryEditor
	unpacker core.Unpacker
	opts     core.InjectOptions
	logger   *log.Logger
}

// NewEngine validates opts and creates an Engine
func NewEngine(editor core.BinaryEditor, unpacker core.Unpacker, opts core.InjectOptions, logger *log.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.ScratchDir == "" {
		return nil, fmt.Errorf("%w: scratch directory not set", core.ErrInvalidInput)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{editor: editor, unpacker: unpacker, opts: opts, logger: logger}, nil
}

// Run injects every tweak input into target. Missing inputs are reported
// together before anything is touched.
func (e *Engine) Run(ctx context.Context, target Target) (*Report, error) {
	inputs, err := payload.ClassifyAll(e.opts.Tweaks)
	if err != nil {
		return nil, err
	}

	store, err := staging.New(filepath.Join(e.opts.ScratchDir, stagingDir))
	if err != nil {
		return nil, err
	}

	injector := NewInjector(e.editor, target, e.opts.Mode, e.opts.ScratchDir, e.logger)
	if err := injector.Prepare(ctx, inputs); err != nil {
		return nil, err
	}

	report := &Report{}

	// Direct inputs are staged before any package so they win name collisions.
	for _, input := range inputs {
		if input.Common || input.Kind == payload.KindPackage {
			continue
		}
		if _, added, err := store.Stage(input.Path, staging.OriginInput, false); err != nil {
			return nil, err
		} else if !added {
			e.logger.Debug("duplicate input ignored", "path", input.Path)
		}
	}

	extractor := NewExtractor(e.unpacker, store, filepath.Join(e.opts.ScratchDir, packagesDir), e.logger)
	for _, input := range inputs {
		if input.Kind != payload.KindPackage {
			continue
		}
		h, err := extractor.Extract(input.Path)
		if err != nil {
			return nil, err
		}
		report.Harvests = append(report.Harvests, h)
	}

	plan, err := e.plan(store, target, injector.Root())
	if err != nil {
		return nil, err
	}
	report.Plan = plan

	var siblings []string
	for _, item := range plan.Items {
		if item.Registered() {
			siblings = append(siblings, item.Name)
		}
	}

	rewriter := NewRewriter(e.editor, e.opts.Mode.Token(), payload.SupportTable(e.opts.Runtime), siblings,
		filepath.Join(e.opts.ScratchDir, entsDir), e.logger)
	for _, item := range plan.Items {
		if !item.Registered() {
			continue
		}
		reqs, err := rewriter.Rewrite(ctx, item)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			plan.Required.Add(r)
		}
	}
	for _, r := range plan.Required.Requirements() {
		e.logger.Debugf("%s requires %s", r.Payload, r.Library.Root())
	}

	copied, err := injector.CopyCommon(inputs)
	if err != nil {
		return nil, err
	}
	report.Payloads = append(report.Payloads, copied...)

	resolver := NewResolver(e.editor, supportcache.New(e.opts.CacheDir), injector.Root(), e.opts.Mode, e.opts.Runtime, e.logger)
	report.Libraries, err = resolver.Resolve(ctx, plan.Required)
	if err != nil {
		return nil, err
	}

	placed, err := injector.Inject(ctx, plan)
	if err != nil {
		return nil, err
	}
	report.Payloads = append(report.Payloads, placed...)

	if err := injector.Finish(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

// plan computes the final location and reference of every staged payload
func (e *Engine) plan(store *staging.Store, target Target, root string) (*Plan, error) {
	token := e.opts.Mode.Token()
	plan := NewPlan()

	for _, entry := range store.Entries() {
		item := PlanItem{Name: entry.Name, Kind: entry.Kind, Source: entry.Path}

		switch entry.Kind {
		case payload.KindSharedObject:
			item.Dest = filepath.Join(root, entry.Name)
			item.Binary = entry.Path
			item.Reference = token + "/" + entry.Name
		case payload.KindFramework:
			exec, err := bundle.ExecutableName(entry.Path)
			if err != nil {
				return nil, err
			}
			item.Dest = filepath.Join(root, entry.Name)
			item.Binary = filepath.Join(entry.Path, exec)
			item.Reference = token + "/" + entry.Name + "/" + exec
		case payload.KindExtension:
			item.Dest = filepath.Join(target.Root, plugInsDir, entry.Name)
		default:
			item.Dest = filepath.Join(target.Root, entry.Name)
		}

		plan.Add(item)
	}
	return plan, nil
}
