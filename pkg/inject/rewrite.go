// pkg/inject/rewrite.go
package inject

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
)

// Rewriter normalizes the self reference and dependency references of
// payload binaries so they resolve under the injection root
type Rewriter struct {
	editor   core.BinaryEditor
	logger   *log.Logger
	token    string
	table    []payload.SupportLibrary
	siblings []string
	entsDir  string
}

// NewRewriter creates a Rewriter. siblings are the names of every shared
// object and framework being injected; entsDir holds captured entitlements.
func NewRewriter(editor core.BinaryEditor, token string, table []payload.SupportLibrary, siblings []string, entsDir string, logger *log.Logger) *Rewriter {
	return &Rewriter{
		editor:   editor,
		logger:   logger,
		token:    token,
		table:    table,
		siblings: siblings,
		entsDir:  entsDir,
	}
}

// Rewrite processes the binary of item and returns the support libraries it
// needs. The binary is re-signed with the entitlements it carried on entry.
func (r *Rewriter) Rewrite(ctx context.Context, item PlanItem) ([]Requirement, error) {
	bin := item.Binary

	entsFile, err := r.captureEntitlements(ctx, item.Name, bin)
	if err != nil {
		return nil, err
	}
	if err := r.editor.StripSignature(ctx, bin); err != nil {
		return nil, err
	}
	if err := r.editor.SetSelfReference(ctx, bin, item.Reference); err != nil {
		return nil, err
	}

	deps, err := r.editor.ListLoadDependencies(ctx, bin)
	if err != nil {
		return nil, err
	}

	var reqs []Requirement
	for _, dep := range deps {
		if !payload.IsRewriteCandidate(dep) {
			continue
		}

		if lib, ok := payload.MatchSupport(r.table, dep); ok {
			reqs = append(reqs, Requirement{Payload: item.Name, Library: lib})
			if err := r.change(ctx, item.Name, bin, dep, lib.Reference(r.token)); err != nil {
				return nil, err
			}
			continue
		}

		for _, sibling := range r.siblings {
			if !payload.MatchesSibling(dep, sibling) {
				continue
			}
			if strings.Contains(dep, r.token+"/"+path.Base(dep)) {
				break
			}
			target, ok := payload.SiblingReference(r.token, dep)
			if !ok {
				break
			}
			if err := r.change(ctx, item.Name, bin, dep, target); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := r.editor.Resign(ctx, bin, entsFile); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *Rewriter) change(ctx context.Context, name, bin, from, to string) error {
	if from == to {
		return nil
	}
	if err := r.editor.RewriteDependencyReference(ctx, bin, from, to); err != nil {
		return err
	}
	r.logger.Infof("fixed dependency in %s: %s -> %s", name, from, to)
	return nil
}

func (r *Rewriter) captureEntitlements(ctx context.Context, name, bin string) (string, error) {
	ents, err := r.editor.Entitlements(ctx, bin)
	if err != nil {
		return "", err
	}
	if len(ents) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(r.entsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create entitlements directory: %w", err)
	}
	file := filepath.Join(r.entsDir, name+".entitlements")
	if err := os.WriteFile(file, ents, 0644); err != nil {
		return "", fmt.Errorf("failed to save entitlements of %s: %w", name, err)
	}
	r.logger.Debug("captured entitlements", "payload", name, "bytes", len(ents))
	return file, nil
}
