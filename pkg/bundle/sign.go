// pkg/bundle/sign.go
package bundle

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arc-language/zule/pkg/core"
)

// Components fakesigned alongside the main executable
var fakesignPatterns = []string{
	"*.dylib",
	"*.framework",
	filepath.Join("PlugIns", "*.appex"),
	filepath.Join("Extensions", "*.appex"),
	filepath.Join("Frameworks", "*.dylib"),
	filepath.Join("Frameworks", "*.framework"),
}

// Fakesign ad-hoc signs the main executable and every dylib, framework and
// extension, and returns how many binaries were signed
func (b *Bundle) Fakesign(ctx context.Context, editor core.BinaryEditor) (int, error) {
	b.logger.Info("fakesigning..")
	if err := editor.Fakesign(ctx, b.Executable); err != nil {
		return 0, err
	}
	count := 1

	for _, pattern := range fakesignPatterns {
		matches, _ := filepath.Glob(filepath.Join(b.Path, pattern))
		for _, m := range matches {
			target := m
			if strings.HasSuffix(m, ".framework") || strings.HasSuffix(m, ".appex") {
				exec, err := ExecutableName(m)
				if err != nil {
					return count, err
				}
				target = filepath.Join(m, exec)
			}
			if err := editor.Fakesign(ctx, target); err != nil {
				return count, err
			}
			count++
		}
	}

	b.logger.Infof("fakesigned %d items", count)
	b.changed = true
	return count, nil
}

// SignEntitlements signs the main executable with the entitlements in file.
// Failure is reported, not returned.
func (b *Bundle) SignEntitlements(ctx context.Context, editor core.BinaryEditor, file string) bool {
	if err := editor.Resign(ctx, b.Executable, file); err != nil {
		b.logger.Warn("couldn't sign binary with entitlements", "err", err)
		return false
	}
	b.logger.Info("signed binary with entitlements file")
	b.changed = true
	return true
}
