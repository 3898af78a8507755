// pkg/core/interface.go
package core

import "context"

// BinaryEditor is the narrow binary-editing capability the injection engine
// drives. Implementations own every detail of the Mach-O format.
type BinaryEditor interface {
	// StripSignature removes any code signature from path
	StripSignature(ctx context.Context, path string) error

	// SetSelfReference changes the install name (LC_ID_DYLIB) of path
	SetSelfReference(ctx context.Context, path, id string) error

	// ListLoadDependencies returns every load-time dependency reference of path
	ListLoadDependencies(ctx context.Context, path string) ([]string, error)

	// RewriteDependencyReference replaces the dependency reference old with new in path
	RewriteDependencyReference(ctx context.Context, path, old, new string) error

	// Resign signs path, embedding entitlementsFile when it is non-empty
	Resign(ctx context.Context, path, entitlementsFile string) error

	// Entitlements returns the signed entitlements of path. No entitlements is not an error.
	Entitlements(ctx context.Context, path string) ([]byte, error)

	// InsertLoadDependency adds a load command for reference to binary
	InsertLoadDependency(ctx context.Context, binary, reference string, weak bool) error

	// AddRunpath adds an LC_RPATH entry to binary
	AddRunpath(ctx context.Context, binary, rpath string) error

	// Fakesign applies an ad-hoc signature, keeping existing entitlements
	Fakesign(ctx context.Context, path string) error
}

// Unpacker is the archive capability used for package inputs.
type Unpacker interface {
	// UnpackOuter extracts the outer container of archive into destDir and
	// returns the path of the inner data segment
	UnpackOuter(archive, destDir string) (string, error)

	// UnpackInner extracts a (possibly compressed) tar data segment into destDir
	UnpackInner(segment, destDir string) error
}
