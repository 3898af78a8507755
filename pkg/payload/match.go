// pkg/payload/match.go
package payload

import (
	"path"
	"strings"

	"github.com/arc-language/zule/pkg/core"
)

// Name matching in this package is deliberately fuzzy: containment, not
// equality. Every such comparison goes through one of the predicates below.

// ContainsFold reports whether fragment occurs in s, ignoring case
func ContainsFold(s, fragment string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(fragment))
}

// IsCommon reports whether the base name of p contains a common support
// library fragment
func IsCommon(p string) bool {
	base := path.Base(strings.TrimRight(p, "/"))
	for _, fragment := range commonLibraries {
		if ContainsFold(base, fragment) {
			return true
		}
	}
	return false
}

// IsRewriteCandidate reports whether ref lives under a prefix the rewriter
// manages. System references elsewhere are never touched.
func IsRewriteCandidate(ref string) bool {
	for _, prefix := range rewritePrefixes {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}

// SupportTable returns the support library table for runtime, in match order
func SupportTable(runtime core.HookRuntime) []SupportLibrary {
	substrate := PathSubstrate
	if runtime == core.RuntimeSubstitute {
		substrate = PathSubstitute
	}
	return []SupportLibrary{
		{Key: KeySubstrate, Path: substrate},
		{Key: KeyRocketBootstrap, Path: PathRocketBootstrap},
		{Key: KeyMRYIPC, Path: PathMRYIPC},
		{Key: KeyCephei, Path: PathCephei},
		{Key: KeyCepheiUI, Path: PathCepheiUI},
		{Key: KeyCepheiPrefs, Path: PathCepheiPrefs},
		{Key: KeyHDev, Path: PathHDev},
	}
}

// MatchSupport returns the first table entry whose key occurs in ref
func MatchSupport(table []SupportLibrary, ref string) (SupportLibrary, bool) {
	for _, lib := range table {
		if ContainsFold(ref, lib.Key) {
			return lib, true
		}
	}
	return SupportLibrary{}, false
}

// MatchesSibling reports whether ref points at the payload called name.
// Containment is case-sensitive, so Foo.dylib also matches
// /usr/lib/libFoo.dylib.
func MatchesSibling(ref, name string) bool {
	return name != "" && strings.Contains(ref, name)
}

// SiblingReference returns the rewritten reference for a dependency on a
// sibling payload, or false when ref is neither a dylib nor a framework
func SiblingReference(token, ref string) (string, bool) {
	bn := path.Base(ref)
	switch {
	case strings.HasSuffix(ref, ".dylib"):
		return token + "/" + bn, true
	case strings.Contains(ref, ".framework"):
		return token + "/" + bn + ".framework/" + bn, true
	default:
		return "", false
	}
}
