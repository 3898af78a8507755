// Package testutil builds on-disk fixtures for tests: .deb packages, Mach-O
// stand-ins and app bundles.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Entry is one file in a fixture package's data segment
type Entry struct {
	Name string // Path inside the package, e.g. "Library/MobileSubstrate/DynamicLibraries/Foo.dylib"
	Body string
	Link string // Symlink target; Body is ignored when set
	Dir  bool
}

// BuildDeb writes a .deb at path whose data segment is named
// "data.tar"+compression (one of "", ".gz", ".xz", ".zst").
func BuildDeb(t *testing.T, path, compression string, entries []Entry) {
	t.Helper()

	var members []struct {
		name string
		body []byte
	}
	add := func(name string, body []byte) {
		members = append(members, struct {
			name string
			body []byte
		}{name, body})
	}

	add("debian-binary", []byte("2.0\n"))
	add("control.tar.gz", compress(t, ".gz", tarball(t, []Entry{{Name: "./control", Body: "Package: fixture\n"}})))
	if compression != "-" {
		add("data.tar"+compression, compress(t, compression, tarball(t, entries)))
	}

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		t.Fatalf("writing ar header: %v", err)
	}
	for _, m := range members {
		hdr := &ar.Header{
			Name:    m.name,
			ModTime: time.Unix(1700000000, 0),
			Mode:    0644,
			Size:    int64(len(m.body)),
		}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatalf("writing ar member header: %v", err)
		}
		if _, err := w.Write(m.body); err != nil {
			t.Fatalf("writing ar member: %v", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing deb: %v", err)
	}
}

// BuildDebWithoutData writes a .deb that lacks a data segment
func BuildDebWithoutData(t *testing.T, path string) {
	t.Helper()
	BuildDeb(t, path, "-", nil)
}

func tarball(t *testing.T, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		name := e.Name
		if !strings.HasPrefix(name, "./") {
			name = "./" + name
		}
		hdr := &tar.Header{Name: name, Mode: 0644, ModTime: time.Unix(1700000000, 0)}
		switch {
		case e.Dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
			hdr.Name = strings.TrimSuffix(name, "/") + "/"
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
			if strings.HasSuffix(name, ".dylib") {
				hdr.Mode = 0755
			}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("writing tar body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return buf.Bytes()
}

func compress(t *testing.T, compression string, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	switch compression {
	case ".gz":
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	case ".xz":
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := xw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := xw.Close(); err != nil {
			t.Fatal(err)
		}
	case ".zst":
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := zw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		return data
	}
	return buf.Bytes()
}
