// pkg/core/options.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InjectMode selects where payloads live and which token references them
type InjectMode string

const (
	// InjectRpath installs payloads into Frameworks/ and references them through @rpath
	InjectRpath InjectMode = "rpath"
	// InjectExecutable installs payloads into the bundle root and references them through @executable_path
	InjectExecutable InjectMode = "executable"
)

// HookRuntime selects the hook-injection runtime payloads are linked against
type HookRuntime string

const (
	// RuntimeSubstrate is the primary hook runtime (CydiaSubstrate)
	RuntimeSubstrate HookRuntime = "substrate"
	// RuntimeSubstitute is the alternate hook runtime
	RuntimeSubstitute HookRuntime = "substitute"
)

// Runtime search tokens
const (
	TokenRpath          = "@rpath"
	TokenExecutablePath = "@executable_path"
)

// Token returns the injection-root token used as prefix for rewritten references
func (m InjectMode) Token() string {
	if m == InjectExecutable {
		return TokenExecutablePath
	}
	return TokenRpath
}

// Dir returns the injection root relative to the bundle root
func (m InjectMode) Dir() string {
	if m == InjectExecutable {
		return ""
	}
	return "Frameworks"
}

// IsValid checks if the mode is known
func (m InjectMode) IsValid() bool {
	return m == InjectRpath || m == InjectExecutable
}

// IsValid checks if the runtime is known
func (r HookRuntime) IsValid() bool {
	return r == RuntimeSubstrate || r == RuntimeSubstitute
}

// InjectOptions configures a single injection run
type InjectOptions struct {
	Tweaks     []string    // Tweak inputs, in command-line order
	Mode       InjectMode  // Injection root (default: rpath)
	Runtime    HookRuntime // Hook runtime (default: substrate)
	CacheDir   string      // User-level support library cache
	ScratchDir string      // Where staging and extraction happen
}

// Validate fills defaults and rejects unsupported combinations
func (o *InjectOptions) Validate() error {
	if o.Mode == "" {
		o.Mode = InjectRpath
	}
	if o.Runtime == "" {
		o.Runtime = RuntimeSubstrate
	}
	if !o.Mode.IsValid() {
		return fmt.Errorf("%w: unknown inject mode %q", ErrInvalidInput, o.Mode)
	}
	if !o.Runtime.IsValid() {
		return fmt.Errorf("%w: unknown hook runtime %q", ErrInvalidInput, o.Runtime)
	}
	if o.Mode == InjectExecutable && o.Runtime == RuntimeSubstitute {
		return fmt.Errorf("%w: substitute cannot be used while injecting into %s", ErrConflictingModes, TokenExecutablePath)
	}
	return nil
}

// Options configures a whole patch run: opening the app, injecting tweaks,
// editing metadata and repackaging
type Options struct {
	Input  string // .ipa or .app
	Output string // .ipa or .app; any other suffix gets .ipa appended
	Inject InjectOptions

	Name         string
	Version      string
	BundleID     string
	MinimumOS    string
	Icon         string
	Entitlements string
	MergePlist   string
	URLSchemes   []string

	RemoveSupportedDevices bool
	RemoveWatchApp         bool
	RemoveExtensions       bool
	EnableDocuments        bool
	Fakesign               bool

	CompressionLevel int // Deflate level for ipa output (1-9)
}

// HasChanges reports whether any modification was requested
func (o *Options) HasChanges() bool {
	return len(o.Inject.Tweaks) > 0 ||
		o.Name != "" || o.Version != "" || o.BundleID != "" || o.MinimumOS != "" ||
		o.Icon != "" || o.Entitlements != "" || o.MergePlist != "" || len(o.URLSchemes) > 0 ||
		o.RemoveSupportedDevices || o.RemoveWatchApp || o.RemoveExtensions || o.EnableDocuments || o.Fakesign
}

// NeedsTools reports whether the run drives the external binary tools
func (o *Options) NeedsTools() bool {
	return len(o.Inject.Tweaks) > 0 || o.Fakesign || o.Entitlements != ""
}

// Validate checks the options before anything is touched and fills defaults
func (o *Options) Validate() error {
	switch strings.ToLower(filepath.Ext(o.Input)) {
	case ".ipa", ".app":
	default:
		return fmt.Errorf("%w: the input file must be an ipa/app", ErrInvalidInput)
	}
	if _, err := os.Stat(o.Input); err != nil {
		return &MissingInputsError{Paths: []string{o.Input}}
	}

	if o.Output == "" {
		return fmt.Errorf("%w: no output specified", ErrInvalidInput)
	}
	switch strings.ToLower(filepath.Ext(o.Output)) {
	case ".ipa", ".app":
	default:
		o.Output += ".ipa"
	}

	if !o.HasChanges() {
		return fmt.Errorf("%w: at least one option to modify the ipa must be present", ErrInvalidInput)
	}
	if o.MinimumOS != "" && !ValidMinimumOS(o.MinimumOS) {
		return fmt.Errorf("%w: invalid OS version: %s", ErrInvalidInput, o.MinimumOS)
	}

	var missing []string
	for _, f := range []string{o.Icon, o.Entitlements, o.MergePlist} {
		if f == "" {
			continue
		}
		if info, err := os.Stat(f); err != nil || info.IsDir() {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingInputsError{Paths: missing}
	}

	if o.CompressionLevel == 0 {
		o.CompressionLevel = DefaultCompressionLevel
	}
	if o.CompressionLevel < 1 || o.CompressionLevel > 9 {
		return fmt.Errorf("%w: compression level must be between 1 and 9, got %d", ErrInvalidInput, o.CompressionLevel)
	}

	return o.Inject.Validate()
}

// ValidMinimumOS reports whether v only holds digits and dots
func ValidMinimumOS(v string) bool {
	if v == "" {
		return false
	}
	for _, c := range v {
		if c != '.' && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
