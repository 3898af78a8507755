// pkg/deb/unpack.go
package deb

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/arc-language/zule/pkg/core"
)

// Unpacker extracts .deb packages: the ar outer container and the
// compressed data.tar inner segment
type Unpacker struct {
	logger *log.Logger
}

var _ core.Unpacker = (*Unpacker)(nil)

// NewUnpacker creates a new Unpacker
func NewUnpacker(logger *log.Logger) *Unpacker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Unpacker{logger: logger}
}

// UnpackOuter writes every member of the ar archive into destDir and returns
// the path of the data.tar.* member
func (u *Unpacker) UnpackOuter(archive, destDir string) (string, error) {
	u.logger.Debugf("Extracting .deb package: %s -> %s", archive, destDir)

	f, err := os.Open(archive)
	if err != nil {
		return "", fmt.Errorf("opening .deb file: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	arReader := ar.NewReader(f)

	var segment string
	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", malformed(archive, "reading ar entry: %v", err)
		}

		// GNU ar terminates member names with a slash
		name := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if name == "" || name != filepath.Base(name) {
			return "", malformed(archive, "bad ar member name %q", header.Name)
		}

		u.logger.Debugf("  Found ar member: %s (%d bytes)", name, header.Size)

		target := filepath.Join(destDir, name)
		if err := writeFile(target, arReader, 0644, header.Size); err != nil {
			return "", malformed(archive, "writing ar member %s: %v", name, err)
		}

		if strings.HasPrefix(name, DataSegmentPrefix) && segment == "" {
			segment = target
		}
	}

	if segment == "" {
		return "", malformed(archive, "no %s.* found in .deb package", DataSegmentPrefix)
	}

	return segment, nil
}

// UnpackInner extracts the data.tar.* segment into destDir
func (u *Unpacker) UnpackInner(segment, destDir string) error {
	f, err := os.Open(segment)
	if err != nil {
		return fmt.Errorf("opening data segment: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	r, closer, err := u.decompressor(f, segment)
	if err != nil {
		return malformed(segment, "%v", err)
	}
	defer closer()

	if err := u.extractTar(tar.NewReader(r), destDir); err != nil {
		return malformed(segment, "%v", err)
	}
	return nil
}

// decompressor picks a reader from the segment's suffix
func (u *Unpacker) decompressor(r io.Reader, name string) (io.Reader, func(), error) {
	nop := func() {}

	switch {
	case strings.HasSuffix(name, SuffixGzip):
		u.logger.Debugf("  Using gzip decompression")
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, nop, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gzReader, func() { gzReader.Close() }, nil
	case strings.HasSuffix(name, SuffixXz):
		u.logger.Debugf("  Using xz decompression")
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, nop, fmt.Errorf("creating xz reader: %w", err)
		}
		return xzReader, nop, nil
	case strings.HasSuffix(name, SuffixLzma):
		u.logger.Debugf("  Using lzma decompression")
		lzmaReader, err := lzma.NewReader(r)
		if err != nil {
			return nil, nop, fmt.Errorf("creating lzma reader: %w", err)
		}
		return lzmaReader, nop, nil
	case strings.HasSuffix(name, SuffixZstd):
		u.logger.Debugf("  Using zstd decompression")
		zstdReader, err := zstd.NewReader(r)
		if err != nil {
			return nil, nop, fmt.Errorf("zstd init: %w", err)
		}
		return zstdReader, zstdReader.Close, nil
	case strings.HasSuffix(name, SuffixBzip2):
		u.logger.Debugf("  Using bzip2 decompression")
		return bzip2.NewReader(r), nop, nil
	default:
		u.logger.Debugf("  Using uncompressed tar")
		return r, nop, nil
	}
}

func (u *Unpacker) extractTar(tarReader *tar.Reader, destDir string) error {
	fileCount := 0
	dirCount := 0
	symlinkCount := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		// Clean the path (remove leading ./)
		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}

		targetPath, err := within(destDir, cleanPath)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", targetPath, err)
			}
			dirCount++
			u.logger.Debugf("    %s/", cleanPath)

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating parent directory for symlink: %w", err)
			}
			os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", targetPath, header.Linkname, err)
			}
			symlinkCount++
			u.logger.Debugf("    %s -> %s", cleanPath, header.Linkname)

		case tar.TypeLink:
			source, err := within(destDir, strings.TrimPrefix(header.Linkname, "./"))
			if err != nil {
				return err
			}
			os.Remove(targetPath)
			if err := os.Link(source, targetPath); err != nil {
				return fmt.Errorf("creating hard link %s -> %s: %w", targetPath, header.Linkname, err)
			}
			fileCount++

		case tar.TypeReg:
			if err := writeFile(targetPath, tarReader, os.FileMode(header.Mode).Perm(), header.Size); err != nil {
				return err
			}
			fileCount++
			u.logger.Debugf("    %s (%d bytes)", cleanPath, header.Size)

		default:
			u.logger.Debugf("    Skipping unsupported file type %v for %s", header.Typeflag, cleanPath)
		}
	}

	u.logger.Debugf("  Extraction complete: %d files, %d directories, %d symlinks", fileCount, dirCount, symlinkCount)
	return nil
}

// within joins name onto root and rejects results that escape root
func within(root, name string) (string, error) {
	target := filepath.Join(root, name)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes extraction root", name)
	}
	return target, nil
}

func writeFile(targetPath string, r io.Reader, mode os.FileMode, size int64) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", targetPath, err)
	}

	written, err := io.Copy(outFile, r)
	outFile.Close()
	if err != nil {
		return fmt.Errorf("writing file %s: %w", targetPath, err)
	}

	if written != size {
		return fmt.Errorf("file size mismatch for %s: expected %d, got %d", targetPath, size, written)
	}
	return nil
}

func malformed(path, format string, args ...any) error {
	return &core.Error{
		Op:   "unpack",
		Path: path,
		Err:  fmt.Errorf("%w: %s", core.ErrMalformedPackage, fmt.Sprintf(format, args...)),
	}
}
