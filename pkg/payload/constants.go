// pkg/payload/constants.go
package payload

import "github.com/arc-language/zule/pkg/core"

// commonLibraries are name fragments of support libraries assumed to be
// resident already. Matched case-insensitively against base names.
var commonLibraries = [...]string{
	"libmryipc.dylib",
	"librocketbootstrap.dylib",
	"cydiasubstrate.framework",
	"cephei.framework",
	"cepheiui.framework",
	"cepheiprefs.framework",
	"substitute.framework",
	"libhdev.framework",
}

// Support library keys. A key is the lower-case fragment searched for in a
// dependency reference.
const (
	KeySubstrate       = "substrate."
	KeyRocketBootstrap = "librocketbootstrap."
	KeyMRYIPC          = "libmryipc."
	KeyCephei          = "cephei."
	KeyCepheiUI        = "cepheiui."
	KeyCepheiPrefs     = "cepheiprefs."
	KeyHDev            = "libhdev."
)

// Canonical in-bundle paths, relative to the injection root
const (
	PathSubstrate       = "CydiaSubstrate.framework/CydiaSubstrate"
	PathSubstitute      = "Substitute.framework/Substitute"
	PathRocketBootstrap = "librocketbootstrap.dylib"
	PathMRYIPC          = "libmryipc.dylib"
	PathCephei          = "Cephei.framework/Cephei"
	PathCepheiUI        = "CepheiUI.framework/CepheiUI"
	PathCepheiPrefs     = "CepheiPrefs.framework/CepheiPrefs"
	PathHDev            = "libhdev.framework/libhdev"
)

// rewritePrefixes mark dependency references the rewriter is allowed to touch
var rewritePrefixes = [...]string{
	"/Library/",
	"/usr/lib/",
	core.TokenRpath,
	core.TokenExecutablePath,
}

// PreferenceLoaderFragment flags packages that depend on PreferenceLoader
const PreferenceLoaderFragment = "preferenceloader"
