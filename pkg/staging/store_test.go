package staging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
)

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStageFirstWriterWins(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatal(err)
	}

	first := writeFile(t, filepath.Join(dir, "a", "Foo.dylib"), "first")
	second := writeFile(t, filepath.Join(dir, "b", "Foo.dylib"), "second")

	e, added, err := store.Stage(first, OriginInput, false)
	if err != nil || !added {
		t.Fatalf("Stage(first) = %v, %v", added, err)
	}
	if e.Kind != payload.KindSharedObject || e.Origin != OriginInput {
		t.Errorf("entry = %+v", e)
	}

	e2, added, err := store.Stage(second, OriginPackage, true)
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("second Stage() reported a fresh insert")
	}
	if e2 != e {
		t.Error("second Stage() did not return the existing entry")
	}

	data, err := os.ReadFile(e.Path)
	if err != nil || string(data) != "first" {
		t.Errorf("staged content = %q, %v, want first", data, err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Error("a discarded candidate must not be moved")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestStageMoveDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatal(err)
	}
	fw := filepath.Join(dir, "x", "Bar.framework")
	writeFile(t, filepath.Join(fw, "Bar"), "bin")

	e, added, err := store.Stage(fw, OriginPackage, true)
	if err != nil || !added {
		t.Fatalf("Stage() = %v, %v", added, err)
	}
	if e.Kind != payload.KindFramework {
		t.Errorf("Kind = %v", e.Kind)
	}
	if _, err := os.Stat(filepath.Join(e.Path, "Bar")); err != nil {
		t.Errorf("framework contents not staged: %v", err)
	}
	if _, err := os.Stat(fw); !os.IsNotExist(err) {
		t.Error("moved source still present")
	}
}

func TestPutAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if !store.Put("/a/Foo.dylib", "/stage/Foo.dylib") {
		t.Fatal("Put() on a fresh name returned false")
	}
	if store.Put("/b/Foo.dylib", "/other/Foo.dylib") {
		t.Fatal("Put() on an existing name returned true")
	}

	got, err := store.Get("Foo.dylib")
	if err != nil || got != "/stage/Foo.dylib" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	if _, err := store.Get("Missing.dylib"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEntriesKeepInsertionOrder(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"C.dylib", "A.framework", "B.dylib", "A.framework"} {
		store.Put(name, "/"+name)
	}

	var names []string
	for _, e := range store.Entries() {
		names = append(names, e.Name)
	}
	want := []string{"C.dylib", "A.framework", "B.dylib"}
	if len(names) != len(want) {
		t.Fatalf("Entries() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Entries()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestStageFollowsSymlinkedInput(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "real", "Foo.dylib"), "foo")
	link := filepath.Join(dir, "links", "Foo.dylib")
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join("..", "real", "Foo.dylib"), link); err != nil {
		t.Fatal(err)
	}

	e, added, err := store.Stage(link, OriginInput, false)
	if err != nil || !added {
		t.Fatalf("Stage() = %v, %v", added, err)
	}
	if e.Name != "Foo.dylib" || e.Path != filepath.Join(dir, "stage", "Foo.dylib") {
		t.Errorf("entry = %+v", e)
	}

	info, err := os.Lstat(e.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Error("staged copy is a symlink")
	}
	data, err := os.ReadFile(e.Path)
	if err != nil || string(data) != "foo" {
		t.Errorf("staged content = %q, %v, want foo", data, err)
	}
}

func TestStageDanglingInput(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "stage"))
	if err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "Gone.dylib")
	if err := os.Symlink("nowhere/Gone.dylib", link); err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Stage(link, OriginInput, false); err == nil {
		t.Fatal("Stage() accepted a dangling symlink")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries, want 0", store.Len())
	}
}
