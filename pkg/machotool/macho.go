// pkg/machotool/macho.go
package machotool

import (
	"fmt"

	"github.com/blacktop/go-macho"
)

// open returns the first slice of a universal binary, or the thin file
func open(path string) (*macho.File, func(), error) {
	if fat, err := macho.OpenFat(path); err == nil {
		if len(fat.Arches) == 0 {
			fat.Close()
			return nil, func() {}, fmt.Errorf("%s: universal binary has no slices", path)
		}
		return fat.Arches[0].File, func() { fat.Close() }, nil
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening mach-o %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// LoadDependencies lists every dylib load command of path in load order,
// excluding the file's own LC_ID_DYLIB
func LoadDependencies(path string) ([]string, error) {
	f, closer, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	var deps []string
	for _, l := range f.Loads {
		switch lc := l.(type) {
		case *macho.Dylib:
			deps = append(deps, lc.Name)
		case *macho.WeakDylib:
			deps = append(deps, lc.Name)
		case *macho.ReExportDylib:
			deps = append(deps, lc.Name)
		case *macho.UpwardDylib:
			deps = append(deps, lc.Name)
		}
	}
	return deps, nil
}

// SelfReference returns the install name of path, or "" for executables
func SelfReference(path string) (string, error) {
	f, closer, err := open(path)
	if err != nil {
		return "", err
	}
	defer closer()

	if id := f.DylibID(); id != nil {
		return id.Name, nil
	}
	return "", nil
}

// IsEncrypted reports whether path carries a FairPlay-encrypted segment
func IsEncrypted(path string) (bool, error) {
	f, closer, err := open(path)
	if err != nil {
		return false, err
	}
	defer closer()

	for _, l := range f.Loads {
		if enc, ok := l.(*macho.EncryptionInfo64); ok && enc.CryptID != 0 {
			return true, nil
		}
	}
	return false, nil
}
