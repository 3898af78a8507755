package inject

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

// fakeEditor records every call and keeps dependency lists in memory
type fakeEditor struct {
	deps  map[string][]string
	ids   map[string]string
	ents  map[string][]byte
	calls []string
	fail  map[string]error
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{
		deps: make(map[string][]string),
		ids:  make(map[string]string),
		ents: make(map[string][]byte),
		fail: make(map[string]error),
	}
}

func (f *fakeEditor) record(op string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprint(append([]any{op}, args...)...))
	return f.fail[op]
}

func (f *fakeEditor) StripSignature(_ context.Context, path string) error {
	return f.record("strip ", path)
}

func (f *fakeEditor) SetSelfReference(_ context.Context, path, id string) error {
	f.ids[path] = id
	return f.record("id ", path, " ", id)
}

func (f *fakeEditor) ListLoadDependencies(_ context.Context, path string) ([]string, error) {
	return append([]string(nil), f.deps[path]...), nil
}

func (f *fakeEditor) RewriteDependencyReference(_ context.Context, path, old, new string) error {
	for i, dep := range f.deps[path] {
		if dep == old {
			f.deps[path][i] = new
		}
	}
	return f.record("change ", path, " ", old, " ", new)
}

func (f *fakeEditor) Resign(_ context.Context, path, entitlementsFile string) error {
	return f.record("sign ", path, " ", entitlementsFile)
}

func (f *fakeEditor) Entitlements(_ context.Context, path string) ([]byte, error) {
	return f.ents[path], nil
}

func (f *fakeEditor) InsertLoadDependency(_ context.Context, binary, reference string, weak bool) error {
	f.deps[binary] = append(f.deps[binary], reference)
	return f.record("insert ", binary, " ", reference, " ", weak)
}

func (f *fakeEditor) AddRunpath(_ context.Context, binary, rpath string) error {
	return f.record("rpath ", binary, " ", rpath)
}

func (f *fakeEditor) Fakesign(_ context.Context, path string) error {
	return f.record("fakesign ", path)
}

// changes returns the rewrite calls made against path
func (f *fakeEditor) changes(path string) []string {
	var out []string
	prefix := "change " + path + " "
	for _, c := range f.calls {
		if len(c) > len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c[len(prefix):])
		}
	}
	return out
}

func (f *fakeEditor) called(call string) bool {
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func captureLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf), &buf
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func infoPlist(executable string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>` + executable + `</string>
</dict>
</plist>
`
}

// fixtureApp creates an app bundle with a main executable
func fixtureApp(t *testing.T) Target {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Demo.app")
	exec := filepath.Join(root, "Demo")
	writeFile(t, exec, "main")
	writeFile(t, filepath.Join(root, "Info.plist"), infoPlist("Demo"))
	return Target{Root: root, Executable: exec}
}
