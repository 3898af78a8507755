// pkg/payload/classify.go
package payload

import (
	"os"
	"path/filepath"

	"github.com/arc-language/zule/pkg/core"
)

// Classify inspects a tweak path and determines its kind. Classification is
// by suffix only.
func Classify(p string) (TweakInput, error) {
	p = filepath.Clean(p)
	if _, err := os.Lstat(p); err != nil {
		return TweakInput{}, &core.Error{Op: "classify", Path: p, Err: core.ErrInvalidInput}
	}
	return TweakInput{
		Path:   p,
		Name:   filepath.Base(p),
		Kind:   KindOf(p),
		Common: IsCommon(p),
	}, nil
}

// ClassifyAll classifies every path in order. Every missing path is
// collected into a single *core.MissingInputsError; nothing is returned
// unless all inputs exist. Repeated paths are kept once.
func ClassifyAll(paths []string) ([]TweakInput, error) {
	var (
		inputs  []TweakInput
		missing []string
		seen    = make(map[string]bool)
	)

	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		in, err := Classify(clean)
		if err != nil {
			missing = append(missing, clean)
			continue
		}
		inputs = append(inputs, in)
	}

	if len(missing) > 0 {
		return nil, &core.MissingInputsError{Paths: missing}
	}
	return inputs, nil
}

// HasKind reports whether any input is of one of kinds
func HasKind(inputs []TweakInput, kinds ...Kind) bool {
	for _, in := range inputs {
		for _, k := range kinds {
			if in.Kind == k {
				return true
			}
		}
	}
	return false
}
