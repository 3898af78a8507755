// Package bundle opens, edits and repackages iOS application bundles.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/fsutil"
	"github.com/arc-language/zule/pkg/machotool"
)

// PayloadDir is the top-level directory of every ipa
const PayloadDir = "Payload"

// Bundle is a working copy of an app
type Bundle struct {
	Root       string // Scratch directory holding Payload/
	Path       string // The .app directory
	Executable string // Main executable
	Info       *Info

	logger  *log.Logger
	changed bool
	now     func() time.Time
}

// Open copies or extracts input (an .ipa or .app) into scratch
func Open(input, scratch string, logger *log.Logger) (*Bundle, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	payload := filepath.Join(scratch, PayloadDir)
	switch strings.ToLower(filepath.Ext(input)) {
	case ".ipa":
		logger.Info("extracting ipa..")
		if err := unzip(input, scratch); err != nil {
			return nil, err
		}
		logger.Info("extracted ipa")
	case ".app":
		logger.Info("copying app to temporary directory..")
		if err := fsutil.CopyDir(input, filepath.Join(payload, filepath.Base(input))); err != nil {
			return nil, fmt.Errorf("copying %s: %w", input, err)
		}
	default:
		return nil, invalid(input, "the input must be an .ipa or .app")
	}

	apps, _ := filepath.Glob(filepath.Join(payload, "*.app"))
	if len(apps) == 0 {
		return nil, invalid(input, "couldn't find .app folder")
	}
	b := &Bundle{Root: scratch, Path: apps[0], logger: logger, now: time.Now}

	info, err := ReadInfo(b.Path)
	if err != nil {
		return nil, invalid(input, "couldn't read Info.plist: %v", err)
	}
	b.Info = info

	exec := info.String("CFBundleExecutable")
	if exec == "" {
		return nil, invalid(input, "Info.plist has no CFBundleExecutable")
	}
	b.Executable = filepath.Join(b.Path, exec)

	if encrypted, err := machotool.IsEncrypted(b.Executable); err != nil {
		logger.Debug("encryption check skipped", "err", err)
	} else if encrypted {
		logger.Warn("app is encrypted, the output app will only work for devices that have ever been logged in to your apple id")
		logger.Warn("find a decrypted ipa for everything to function normally")
	}

	return b, nil
}

// MarkChanged records a change made outside the bundle's own edits
func (b *Bundle) MarkChanged() {
	b.changed = true
}

// Changed reports whether anything was modified
func (b *Bundle) Changed() bool {
	return b.changed
}

// Save writes Info.plist back
func (b *Bundle) Save() error {
	return b.Info.Save()
}

// Package writes the bundle to output. An .app output replaces any existing
// directory; anything else is written as an ipa at the given deflate level.
func (b *Bundle) Package(output string, level int) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if strings.EqualFold(filepath.Ext(output), ".app") {
		if err := os.RemoveAll(output); err != nil {
			return fmt.Errorf("removing existing %s: %w", output, err)
		}
		if err := fsutil.Move(b.Path, output); err != nil {
			return fmt.Errorf("moving app to %s: %w", output, err)
		}
		b.Path = output
		b.logger.Infof("generated app at %s", output)
		return nil
	}

	b.logger.Infof("generating ipa using compression level %d..", level)
	if err := zipDir(filepath.Join(b.Root, PayloadDir), b.Root, output, level); err != nil {
		return err
	}
	b.logger.Infof("generated ipa at %s", output)
	return nil
}

func invalid(input, format string, args ...any) error {
	return &core.Error{
		Op:   "open",
		Path: input,
		Err:  fmt.Errorf("%w: "+format, append([]any{core.ErrInvalidBundle}, args...)...),
	}
}

func unzip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return invalid(archive, "not a zip/ipa file")
	}
	defer r.Close()

	found := false
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, PayloadDir+"/") {
			found = true
			break
		}
	}
	if !found {
		return invalid(archive, "couldn't find Payload folder")
	}

	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		rel, err := filepath.Rel(dest, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return invalid(archive, "entry %q escapes the extraction root", f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			link, err := readEntry(f)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(string(link), target); err != nil {
				return fmt.Errorf("creating symlink %s: %w", f.Name, err)
			}
		default:
			if err := extractEntry(f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func extractEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return out.Close()
}

// zipDir writes every entry below dir into a zip at output, named relative to base
func zipDir(dir, base, output string, level int) error {
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer file.Close()

	w := zip.NewWriter(file)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		switch {
		case info.IsDir():
			hdr.Name += "/"
			hdr.Method = zip.Store
			_, err := w.CreateHeader(hdr)
			return err
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			hdr.Method = zip.Store
			fw, err := w.CreateHeader(hdr)
			if err != nil {
				return err
			}
			_, err = io.WriteString(fw, link)
			return err
		}

		hdr.Method = zip.Deflate
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(fw, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("zipping %s: %w", dir, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", output, err)
	}
	return file.Close()
}
