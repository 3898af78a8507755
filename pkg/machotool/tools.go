// pkg/machotool/tools.go
package machotool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/arc-language/zule/pkg/core"
)

// ToolError reports a failed external tool invocation
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is makes every ToolError match core.ErrExternalTool
func (e *ToolError) Is(target error) bool {
	return target == core.ErrExternalTool
}

// runFunc runs a tool and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &ToolError{Tool: name, Args: args, Output: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// commandExists checks if a command is available in PATH
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// isNotInstalled reports whether err means the tool binary itself is missing
func isNotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
