// pkg/bundle/info.go
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// InfoPlist is the metadata file of every bundle and component
const InfoPlist = "Info.plist"

// Info is a decoded Info.plist that is written back in the format it was read in
type Info struct {
	path   string
	format int
	Values map[string]any
}

// ReadInfo decodes the Info.plist inside dir
func ReadInfo(dir string) (*Info, error) {
	path := filepath.Join(dir, InfoPlist)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any)
	format, err := plist.Unmarshal(data, &values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Info{path: path, format: format, Values: values}, nil
}

// String returns the string value of key, or ""
func (i *Info) String(key string) string {
	s, _ := i.Values[key].(string)
	return s
}

// Set stores value under key
func (i *Info) Set(key string, value any) {
	i.Values[key] = value
}

// Delete removes key and reports whether it was present
func (i *Info) Delete(key string) bool {
	if _, ok := i.Values[key]; !ok {
		return false
	}
	delete(i.Values, key)
	return true
}

// Save writes the plist back
func (i *Info) Save() error {
	data, err := plist.MarshalIndent(i.Values, i.format, "\t")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", i.path, err)
	}
	return os.WriteFile(i.path, data, 0644)
}

// ExecutableName returns the CFBundleExecutable declared by the component at
// dir. Components without one fall back to their name minus the extension.
func ExecutableName(dir string) (string, error) {
	fallback := strings.TrimSuffix(filepath.Base(dir), filepath.Ext(dir))

	info, err := ReadInfo(dir)
	if os.IsNotExist(err) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	if exec := info.String("CFBundleExecutable"); exec != "" {
		return exec, nil
	}
	return fallback, nil
}
