// pkg/inject/resolve.go
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
	"github.com/arc-language/zule/pkg/supportcache"
)

// Reference librocketbootstrap is built against
const rocketBootstrapSubstrateRef = core.TokenRpath + "/" + payload.PathSubstrate

// Resolver ensures every required support library is present in the
// injection root, copying missing ones from the user's cache
type Resolver struct {
	editor  core.BinaryEditor
	logger  *log.Logger
	cache   *supportcache.Cache
	root    string
	mode    core.InjectMode
	runtime core.HookRuntime
}

// NewResolver creates a Resolver that fills root from cache
func NewResolver(editor core.BinaryEditor, cache *supportcache.Cache, root string, mode core.InjectMode, runtime core.HookRuntime, logger *log.Logger) *Resolver {
	return &Resolver{
		editor:  editor,
		logger:  logger,
		cache:   cache,
		root:    root,
		mode:    mode,
		runtime: runtime,
	}
}

// Resolve makes each library of reqs available. A library already in the
// injection root is left alone; one missing from the cache is fatal.
func (r *Resolver) Resolve(ctx context.Context, reqs *RequirementSet) ([]Outcome, error) {
	var outcomes []Outcome

	for _, lib := range reqs.Libraries() {
		name := lib.Root()
		dest := filepath.Join(r.root, name)
		if fsutil.Exists(dest) {
			r.logger.Infof("existing %s found", name)
			outcomes = append(outcomes, Outcome{Name: name, Dest: dest, Status: StatusExisting})
			continue
		}
		if err := r.fromCache(name, dest); err != nil {
			return outcomes, err
		}
		r.logger.Infof("auto-injected %s", name)
		outcomes = append(outcomes, Outcome{Name: name, Dest: dest, Status: StatusAutoInjected})
	}

	if reqs.Has(payload.KeyRocketBootstrap) && !reqs.Has(payload.KeySubstrate) {
		out, err := r.fixRocketBootstrap(ctx)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

// fixRocketBootstrap points librocketbootstrap at the selected hook runtime
// and installs that runtime, replacing any copy already present. Payloads
// that need rocketbootstrap alone never ask for the runtime themselves.
func (r *Resolver) fixRocketBootstrap(ctx context.Context) (Outcome, error) {
	runtime := payload.PathSubstrate
	var target string
	switch {
	case r.mode == core.InjectExecutable:
		target = core.TokenExecutablePath + "/" + payload.PathSubstrate
	case r.runtime == core.RuntimeSubstitute:
		runtime = payload.PathSubstitute
		target = core.TokenRpath + "/" + payload.PathSubstitute
	}

	if target != "" {
		helper := filepath.Join(r.root, payload.PathRocketBootstrap)
		if err := r.editor.StripSignature(ctx, helper); err != nil {
			return Outcome{}, err
		}
		if err := r.editor.RewriteDependencyReference(ctx, helper, rocketBootstrapSubstrateRef, target); err != nil {
			return Outcome{}, err
		}
		if err := r.editor.Resign(ctx, helper, ""); err != nil {
			return Outcome{}, err
		}
		r.logger.Infof("fixed dependency in %s: %s -> %s", payload.PathRocketBootstrap, rocketBootstrapSubstrateRef, target)
	}

	name := payload.SupportLibrary{Path: runtime}.Root()
	dest := filepath.Join(r.root, name)
	status := StatusAutoInjected
	if fsutil.Exists(dest) {
		r.logger.Infof("existing %s found, replacing", name)
		if err := os.RemoveAll(dest); err != nil {
			return Outcome{}, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		status = StatusReplaced
	}
	if err := r.fromCache(name, dest); err != nil {
		return Outcome{}, err
	}
	r.logger.Infof("auto-injected %s", name)
	return Outcome{Name: name, Dest: dest, Status: status}, nil
}

func (r *Resolver) fromCache(name, dest string) error {
	src, err := r.cache.Lookup(name)
	if err != nil {
		return err
	}
	if err := fsutil.Copy(src, dest); err != nil {
		return fmt.Errorf("failed to copy %s from cache: %w", name, err)
	}
	return nil
}
