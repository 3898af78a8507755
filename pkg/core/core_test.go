package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestLoadConfigKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "cache_dir: /tmp/libs\ntools:\n  ldid: /opt/bin/ldid\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CacheDir != "/tmp/libs" || cfg.Tools.Ldid != "/opt/bin/ldid" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Tools.InstallNameTool != "install_name_tool" || cfg.CompressionLevel != DefaultCompressionLevel {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsCompressionLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("compression_level: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() accepted compression_level 12")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.CacheRepo = "https://example.com/libs.git"
	cfg.KeepScratch = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
}

func TestOptionsValidateFillsDefaults(t *testing.T) {
	input := filepath.Join(t.TempDir(), "Demo.app")
	if err := os.Mkdir(input, 0755); err != nil {
		t.Fatal(err)
	}

	opts := Options{Input: input, Output: "patched", Name: "Demo"}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if opts.Output != "patched.ipa" {
		t.Errorf("Output = %q, want patched.ipa", opts.Output)
	}
	if opts.CompressionLevel != DefaultCompressionLevel {
		t.Errorf("CompressionLevel = %d", opts.CompressionLevel)
	}
	if opts.Inject.Mode != InjectRpath || opts.Inject.Runtime != RuntimeSubstrate {
		t.Errorf("inject defaults = %+v", opts.Inject)
	}
}

func TestOptionsValidateBatchesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Demo.ipa")
	if err := os.WriteFile(input, nil, 0644); err != nil {
		t.Fatal(err)
	}
	icon := filepath.Join(dir, "icon.png")
	ents := filepath.Join(dir, "app.entitlements")

	opts := Options{Input: input, Output: "out.ipa", Icon: icon, Entitlements: ents}
	err := opts.Validate()

	var missing *MissingInputsError
	if !errors.As(err, &missing) {
		t.Fatalf("Validate() error = %v, want *MissingInputsError", err)
	}
	if want := []string{icon, ents}; !reflect.DeepEqual(missing.Paths, want) {
		t.Errorf("Paths = %v, want %v", missing.Paths, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("missing inputs should match ErrInvalidInput")
	}
}

func TestOptionsValidateRejects(t *testing.T) {
	input := filepath.Join(t.TempDir(), "Demo.app")
	if err := os.Mkdir(input, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no output", Options{Input: input, Name: "x"}, ErrInvalidInput},
		{"compression", Options{Input: input, Output: "o.ipa", Name: "x", CompressionLevel: 10}, ErrInvalidInput},
		{"minimum os", Options{Input: input, Output: "o.ipa", MinimumOS: "14.0b"}, ErrInvalidInput},
		{"unknown mode", Options{Input: input, Output: "o.ipa", Name: "x", Inject: InjectOptions{Mode: "loader"}}, ErrInvalidInput},
		{"conflicting", Options{Input: input, Output: "o.ipa", Name: "x", Inject: InjectOptions{Mode: InjectExecutable, Runtime: RuntimeSubstitute}}, ErrConflictingModes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInjectModeTokens(t *testing.T) {
	if InjectRpath.Token() != "@rpath" || InjectRpath.Dir() != "Frameworks" {
		t.Errorf("rpath mode = %q %q", InjectRpath.Token(), InjectRpath.Dir())
	}
	if InjectExecutable.Token() != "@executable_path" || InjectExecutable.Dir() != "" {
		t.Errorf("executable mode = %q %q", InjectExecutable.Token(), InjectExecutable.Dir())
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Op: "open", Path: "Demo.zip", Err: ErrInvalidBundle}
	if err.Error() != "open Demo.zip: invalid bundle" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidBundle) {
		t.Error("Error should unwrap to its cause")
	}
}
