package inject

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/arc-language/zule/pkg/core"
	"github.com/arc-language/zule/pkg/payload"
)

func TestRewriteTableAndSiblings(t *testing.T) {
	const bin = "/staging/Foo.dylib"
	editor := newFakeEditor()
	editor.deps[bin] = []string{
		"/usr/lib/libSystem.B.dylib",
		"/System/Library/Frameworks/UIKit.framework/UIKit",
		"/Library/MobileSubstrate/DynamicLibraries/Bar.dylib",
		"/Library/Frameworks/CydiaSubstrate.framework/CydiaSubstrate",
		"/usr/lib/librocketbootstrap.dylib",
		"@rpath/Baz.dylib",
		"/Library/Frameworks/Alpha.framework/Alpha",
	}

	logger, logs := captureLogger()
	r := NewRewriter(editor, core.TokenRpath, payload.SupportTable(core.RuntimeSubstrate),
		[]string{"Foo.dylib", "Bar.dylib", "Baz.dylib", "Alpha.framework"}, t.TempDir(), logger)

	reqs, err := r.Rewrite(context.Background(), PlanItem{Name: "Foo.dylib", Binary: bin, Reference: "@rpath/Foo.dylib"})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	want := []string{
		"/Library/MobileSubstrate/DynamicLibraries/Bar.dylib @rpath/Bar.dylib",
		"/Library/Frameworks/CydiaSubstrate.framework/CydiaSubstrate @rpath/CydiaSubstrate.framework/CydiaSubstrate",
		"/usr/lib/librocketbootstrap.dylib @rpath/librocketbootstrap.dylib",
		"/Library/Frameworks/Alpha.framework/Alpha @rpath/Alpha.framework/Alpha",
	}
	if got := editor.changes(bin); !reflect.DeepEqual(got, want) {
		t.Errorf("changes =\n%v\nwant\n%v", got, want)
	}

	var keys []string
	for _, req := range reqs {
		keys = append(keys, req.Library.Key)
	}
	if !reflect.DeepEqual(keys, []string{payload.KeySubstrate, payload.KeyRocketBootstrap}) {
		t.Errorf("requirements = %v", keys)
	}

	if n := strings.Count(logs.String(), "fixed dependency in Foo.dylib"); n != len(want) {
		t.Errorf("%d change notices, want %d", n, len(want))
	}
	if editor.ids[bin] != "@rpath/Foo.dylib" {
		t.Errorf("self reference = %q", editor.ids[bin])
	}

	// strip happens before the id change and the signature is restored last
	first, last := editor.calls[0], editor.calls[len(editor.calls)-1]
	if first != "strip "+bin || last != "sign "+bin+" " {
		t.Errorf("call order: first %q, last %q", first, last)
	}
}

func TestRewriteSiblingContainmentIsLoose(t *testing.T) {
	const bin = "/staging/Tweak.dylib"
	editor := newFakeEditor()
	editor.deps[bin] = []string{"/usr/lib/libFoo.dylib"}

	r := NewRewriter(editor, core.TokenRpath, payload.SupportTable(core.RuntimeSubstrate),
		[]string{"Foo.dylib"}, t.TempDir(), quietLogger())
	if _, err := r.Rewrite(context.Background(), PlanItem{Name: "Tweak.dylib", Binary: bin, Reference: "@rpath/Tweak.dylib"}); err != nil {
		t.Fatal(err)
	}

	want := []string{"/usr/lib/libFoo.dylib @rpath/libFoo.dylib"}
	if got := editor.changes(bin); !reflect.DeepEqual(got, want) {
		t.Errorf("changes = %v, want %v", got, want)
	}
}

func TestRewriteSubstituteRuntime(t *testing.T) {
	const bin = "/staging/Foo.dylib"
	editor := newFakeEditor()
	editor.deps[bin] = []string{"/Library/Frameworks/CydiaSubstrate.framework/CydiaSubstrate"}

	r := NewRewriter(editor, core.TokenRpath, payload.SupportTable(core.RuntimeSubstitute), nil, t.TempDir(), quietLogger())
	reqs, err := r.Rewrite(context.Background(), PlanItem{Name: "Foo.dylib", Binary: bin, Reference: "@rpath/Foo.dylib"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"/Library/Frameworks/CydiaSubstrate.framework/CydiaSubstrate @rpath/Substitute.framework/Substitute"}
	if got := editor.changes(bin); !reflect.DeepEqual(got, want) {
		t.Errorf("changes = %v, want %v", got, want)
	}
	if len(reqs) != 1 || reqs[0].Library.Root() != "Substitute.framework" {
		t.Errorf("requirements = %+v", reqs)
	}
}

func TestRewriteKeepsEntitlements(t *testing.T) {
	const bin = "/staging/Foo.dylib"
	editor := newFakeEditor()
	editor.ents[bin] = []byte("<plist/>")
	dir := t.TempDir()

	r := NewRewriter(editor, core.TokenRpath, payload.SupportTable(core.RuntimeSubstrate), nil, dir, quietLogger())
	if _, err := r.Rewrite(context.Background(), PlanItem{Name: "Foo.dylib", Binary: bin, Reference: "@rpath/Foo.dylib"}); err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(dir, "Foo.dylib.entitlements")
	if data, err := os.ReadFile(file); err != nil || string(data) != "<plist/>" {
		t.Fatalf("entitlements file = %q, %v", data, err)
	}
	if !editor.called("sign " + bin + " " + file) {
		t.Errorf("not re-signed with entitlements; calls: %v", editor.calls)
	}
}
