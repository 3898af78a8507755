// pkg/payload/types.go
package payload

import (
	"path"
	"strings"
)

// Kind is the inferred kind of a tweak input
type Kind int

const (
	KindOther        Kind = iota // copied verbatim into the bundle root
	KindSharedObject             // .dylib
	KindFramework                // .framework
	KindBundle                   // .bundle
	KindExtension                // .appex
	KindPackage                  // .deb
)

var kindNames = map[Kind]string{
	KindOther:        "other",
	KindSharedObject: "shared object",
	KindFramework:    "framework",
	KindBundle:       "bundle",
	KindExtension:    "extension",
	KindPackage:      "package",
}

// String returns the string representation of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsComponent reports whether the kind is a component directory
func (k Kind) IsComponent() bool {
	return k == KindFramework || k == KindBundle || k == KindExtension
}

// KindOf infers a kind from a path suffix
func KindOf(p string) Kind {
	switch strings.ToLower(path.Ext(strings.TrimRight(p, "/"))) {
	case ".dylib":
		return KindSharedObject
	case ".framework":
		return KindFramework
	case ".bundle":
		return KindBundle
	case ".appex":
		return KindExtension
	case ".deb":
		return KindPackage
	default:
		return KindOther
	}
}

// TweakInput is a classified, user-supplied tweak path
type TweakInput struct {
	Path   string // Cleaned path as given
	Name   string // Base name
	Kind   Kind
	Common bool // Name matches a common support library
}

// SupportLibrary maps a dependency fragment to its canonical location
type SupportLibrary struct {
	Key  string // Lower-case fragment searched for in references
	Path string // Canonical path relative to the injection root
}

// Root returns the top-level entry of the canonical path, which is what gets
// copied from the cache (e.g. CydiaSubstrate.framework)
func (l SupportLibrary) Root() string {
	root, _, _ := strings.Cut(l.Path, "/")
	return root
}

// Reference returns the library's runtime reference under token
func (l SupportLibrary) Reference(token string) string {
	return token + "/" + l.Path
}
