// pkg/machotool/toolchain.go
package machotool

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/core"
)

// Toolchain implements core.BinaryEditor on top of ldid, install_name_tool
// and insert_dylib. Load commands are read natively.
type Toolchain struct {
	tools  core.ToolsConfig
	logger *log.Logger
	run    runFunc
}

var _ core.BinaryEditor = (*Toolchain)(nil)

// NewToolchain creates a Toolchain from the configured tool paths
func NewToolchain(tools core.ToolsConfig, logger *log.Logger) *Toolchain {
	defaults := core.DefaultConfig().Tools
	if tools.Ldid == "" {
		tools.Ldid = defaults.Ldid
	}
	if tools.InstallNameTool == "" {
		tools.InstallNameTool = defaults.InstallNameTool
	}
	if tools.InsertDylib == "" {
		tools.InsertDylib = defaults.InsertDylib
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Toolchain{tools: tools, logger: logger, run: execRun}
}

// Check verifies every tool is available
func (t *Toolchain) Check() error {
	var missing []string
	for _, tool := range []string{t.tools.Ldid, t.tools.InstallNameTool, t.tools.InsertDylib} {
		if !commandExists(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: not installed: %s", core.ErrExternalTool, strings.Join(missing, ", "))
	}
	return nil
}

func (t *Toolchain) exec(ctx context.Context, tool string, args ...string) ([]byte, error) {
	t.logger.Debug("running", "tool", tool, "args", args)
	return t.run(ctx, tool, args...)
}

// StripSignature removes the code signature of path
func (t *Toolchain) StripSignature(ctx context.Context, path string) error {
	_, err := t.exec(ctx, t.tools.Ldid, "-r", path)
	return err
}

// SetSelfReference changes the install name of path
func (t *Toolchain) SetSelfReference(ctx context.Context, path, id string) error {
	_, err := t.exec(ctx, t.tools.InstallNameTool, "-id", id, path)
	return err
}

// ListLoadDependencies returns the load-time dependencies of path
func (t *Toolchain) ListLoadDependencies(ctx context.Context, path string) ([]string, error) {
	return LoadDependencies(path)
}

// RewriteDependencyReference replaces old with new in path
func (t *Toolchain) RewriteDependencyReference(ctx context.Context, path, old, new string) error {
	_, err := t.exec(ctx, t.tools.InstallNameTool, "-change", old, new, path)
	return err
}

// Resign signs path, embedding entitlementsFile when given
func (t *Toolchain) Resign(ctx context.Context, path, entitlementsFile string) error {
	_, err := t.exec(ctx, t.tools.Ldid, "-S"+entitlementsFile, path)
	return err
}

// Entitlements returns the entitlements path was signed with. An unsigned
// binary yields no entitlements and no error.
func (t *Toolchain) Entitlements(ctx context.Context, path string) ([]byte, error) {
	out, err := t.exec(ctx, t.tools.Ldid, "-e", path)
	if err != nil {
		if isNotInstalled(err) {
			return nil, err
		}
		t.logger.Debug("no entitlements", "path", path, "err", err)
		return nil, nil
	}
	return out, nil
}

// InsertLoadDependency adds a load command for reference to binary
func (t *Toolchain) InsertLoadDependency(ctx context.Context, binary, reference string, weak bool) error {
	args := []string{"--inplace", "--no-strip-codesig"}
	if weak {
		args = append(args, "--weak")
	}
	args = append(args, "--all-yes", reference, binary)
	_, err := t.exec(ctx, t.tools.InsertDylib, args...)
	return err
}

// AddRunpath adds an LC_RPATH entry to binary
func (t *Toolchain) AddRunpath(ctx context.Context, binary, rpath string) error {
	_, err := t.exec(ctx, t.tools.InstallNameTool, "-add_rpath", rpath, binary)
	return err
}

// Fakesign ad-hoc signs path, merging existing entitlements
func (t *Toolchain) Fakesign(ctx context.Context, path string) error {
	_, err := t.exec(ctx, t.tools.Ldid, "-S", "-M", path)
	return err
}
