package machotool

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/arc-language/zule/internal/testutil"
	"github.com/arc-language/zule/pkg/core"
)

type call struct {
	name string
	args []string
}

func recordingToolchain(out []byte, err error) (*Toolchain, *[]call) {
	var calls []call
	tc := NewToolchain(core.ToolsConfig{}, nil)
	tc.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		return out, err
	}
	return tc, &calls
}

func TestToolchainArguments(t *testing.T) {
	ctx := context.Background()
	tc, calls := recordingToolchain(nil, nil)

	steps := []struct {
		do   func() error
		want call
	}{
		{func() error { return tc.StripSignature(ctx, "Foo.dylib") },
			call{"ldid", []string{"-r", "Foo.dylib"}}},
		{func() error { return tc.SetSelfReference(ctx, "Foo.dylib", "@rpath/Foo.dylib") },
			call{"install_name_tool", []string{"-id", "@rpath/Foo.dylib", "Foo.dylib"}}},
		{func() error {
			return tc.RewriteDependencyReference(ctx, "Foo.dylib", "/usr/lib/a.dylib", "@rpath/a.dylib")
		},
			call{"install_name_tool", []string{"-change", "/usr/lib/a.dylib", "@rpath/a.dylib", "Foo.dylib"}}},
		{func() error { return tc.Resign(ctx, "App", "/tmp/ents.plist") },
			call{"ldid", []string{"-S/tmp/ents.plist", "App"}}},
		{func() error { return tc.Resign(ctx, "Foo.dylib", "") },
			call{"ldid", []string{"-S", "Foo.dylib"}}},
		{func() error { return tc.InsertLoadDependency(ctx, "App", "@rpath/Foo.dylib", true) },
			call{"insert_dylib", []string{"--inplace", "--no-strip-codesig", "--weak", "--all-yes", "@rpath/Foo.dylib", "App"}}},
		{func() error { return tc.AddRunpath(ctx, "App", "@executable_path/Frameworks") },
			call{"install_name_tool", []string{"-add_rpath", "@executable_path/Frameworks", "App"}}},
		{func() error { return tc.Fakesign(ctx, "App") },
			call{"ldid", []string{"-S", "-M", "App"}}},
	}

	for i, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got := (*calls)[len(*calls)-1]
		if !reflect.DeepEqual(got, step.want) {
			t.Errorf("step %d: ran %v, want %v", i, got, step.want)
		}
	}
}

func TestEntitlementsToleratesUnsignedBinary(t *testing.T) {
	tc, _ := recordingToolchain(nil, &ToolError{Tool: "ldid", Err: errors.New("exit status 1")})

	ents, err := tc.Entitlements(context.Background(), "App")
	if err != nil {
		t.Fatalf("Entitlements() error = %v", err)
	}
	if len(ents) != 0 {
		t.Errorf("Entitlements() = %q, want empty", ents)
	}
}

func TestEntitlementsMissingTool(t *testing.T) {
	tc, _ := recordingToolchain(nil, &ToolError{Tool: "ldid", Err: exec.ErrNotFound})

	if _, err := tc.Entitlements(context.Background(), "App"); err == nil {
		t.Fatal("expected an error when ldid is not installed")
	}
}

func TestToolErrorMatchesExternalTool(t *testing.T) {
	err := error(&ToolError{Tool: "install_name_tool", Args: []string{"-id", "x"}, Output: "boom\n", Err: errors.New("exit status 1")})
	if !errors.Is(err, core.ErrExternalTool) {
		t.Error("ToolError should match ErrExternalTool")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Error() = %q, want tool output included", err.Error())
	}
}

func TestLoadDependencies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.dylib")
	testutil.WriteMachO(t, path, testutil.MachO{
		ID:       "/Library/MobileSubstrate/DynamicLibraries/Foo.dylib",
		Deps:     []string{"/usr/lib/libSystem.B.dylib", "@rpath/CydiaSubstrate.framework/CydiaSubstrate"},
		WeakDeps: []string{"/usr/lib/librocketbootstrap.dylib"},
	})

	deps, err := LoadDependencies(path)
	if err != nil {
		t.Fatalf("LoadDependencies() error = %v", err)
	}
	want := []string{
		"/usr/lib/libSystem.B.dylib",
		"@rpath/CydiaSubstrate.framework/CydiaSubstrate",
		"/usr/lib/librocketbootstrap.dylib",
	}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("LoadDependencies() = %v, want %v", deps, want)
	}

	id, err := SelfReference(path)
	if err != nil {
		t.Fatal(err)
	}
	if id != "/Library/MobileSubstrate/DynamicLibraries/Foo.dylib" {
		t.Errorf("SelfReference() = %q", id)
	}
}

func TestIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "Plain")
	enc := filepath.Join(dir, "Enc")
	testutil.WriteMachO(t, plain, testutil.MachO{Deps: []string{"/usr/lib/libSystem.B.dylib"}})
	testutil.WriteMachO(t, enc, testutil.MachO{Encrypted: true})

	if got, err := IsEncrypted(plain); err != nil || got {
		t.Errorf("IsEncrypted(plain) = %v, %v", got, err)
	}
	if got, err := IsEncrypted(enc); err != nil || !got {
		t.Errorf("IsEncrypted(enc) = %v, %v", got, err)
	}
}

func TestLoadDependenciesRejectsNonMachO(t *testing.T) {
	if _, err := LoadDependencies(filepath.Join("testdata", "missing")); err == nil {
		t.Fatal("expected error")
	}
}
