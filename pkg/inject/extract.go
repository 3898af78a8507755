// pkg/inject/extract.go
package inject

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
	"github.com/arc-language/zule/pkg/staging"
)

// Harvest is what one package contributed
type Harvest struct {
	Archive       string
	SharedObjects []string // Payload names found, staged or not
	Components    []string
	Discarded     []string // Names dropped because the store already had them
	Warnings      []string
}

// Extractor unpacks package archives and moves their payloads into the
// staging store
type Extractor struct {
	unpacker core.Unpacker
	store    *staging.Store
	scratch  string
	logger   *log.Logger
	counter  int
}

// NewExtractor creates an Extractor that unpacks below scratch
func NewExtractor(unpacker core.Unpacker, store *staging.Store, scratch string, logger *log.Logger) *Extractor {
	return &Extractor{unpacker: unpacker, store: store, scratch: scratch, logger: logger}
}

// Extract unpacks archive and harvests its shared objects, frameworks and
// bundles. Any unpack failure is fatal.
func (x *Extractor) Extract(archive string) (*Harvest, error) {
	dest := filepath.Join(x.scratch, strconv.Itoa(x.counter))
	x.counter++

	segment, err := x.unpacker.UnpackOuter(archive, dest)
	if err != nil {
		return nil, err
	}
	// A package without files still yields an empty root to walk.
	root := filepath.Join(dest, "e")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", root, err)
	}
	if err := x.unpacker.UnpackInner(segment, root); err != nil {
		return nil, err
	}

	h := &Harvest{Archive: archive}
	var dirs []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			dirs = append(dirs, name)
			kind := payload.KindOf(name)
			if kind != payload.KindBundle && !(kind == payload.KindFramework && !payload.IsCommon(name)) {
				return nil
			}
			if err := x.stage(h, path, &h.Components); err != nil {
				return err
			}
			return filepath.SkipDir
		}

		if d.Type()&fs.ModeSymlink != 0 || payload.KindOf(name) != payload.KindSharedObject || payload.IsCommon(name) {
			return nil
		}
		return x.stage(h, path, &h.SharedObjects)
	})
	if err != nil {
		return nil, fmt.Errorf("harvesting %s: %w", filepath.Base(archive), err)
	}

	// The store is fully populated for this package before the
	// PreferenceLoader scan runs.
	for _, dir := range dirs {
		if payload.ContainsFold(dir, payload.PreferenceLoaderFragment) {
			msg := fmt.Sprintf("found dependency on PreferenceLoader in %s, ipa might not work jailed", archive)
			h.Warnings = append(h.Warnings, msg)
			x.logger.Warn(msg)
			break
		}
	}

	x.logger.Infof("extracted %s", filepath.Base(archive))
	return h, nil
}

func (x *Extractor) stage(h *Harvest, path string, names *[]string) error {
	e, added, err := x.store.Stage(path, staging.OriginPackage, true)
	if err != nil {
		return err
	}
	*names = append(*names, e.Name)
	if !added {
		h.Discarded = append(h.Discarded, e.Name)
		x.logger.Debug("already staged, discarding", "name", e.Name, "archive", filepath.Base(h.Archive))
	}
	return nil
}
