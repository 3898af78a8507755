// pkg/bundle/metadata.go
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"howett.net/plist"

	"github.com/arc-language/zule/pkg/core"
)

// URLTypeName names the CFBundleURLTypes entry added by AddURLSchemes
const URLTypeName = "fyi.zxcvbn.zule"

// setKeys assigns value to every key unless all of them already hold it
func (b *Bundle) setKeys(changed, unchanged string, value any, keys ...string) bool {
	same := true
	for _, key := range keys {
		if !reflect.DeepEqual(b.Info.Values[key], value) {
			same = false
			break
		}
	}
	if same {
		b.logger.Info(unchanged)
		return false
	}
	for _, key := range keys {
		b.Info.Set(key, value)
	}
	b.logger.Info(changed)
	b.changed = true
	return true
}

// SetName changes the display name
func (b *Bundle) SetName(name string) bool {
	return b.setKeys("changed app name to "+name, "app name was already "+name,
		name, "CFBundleDisplayName", "CFBundleName")
}

// SetVersion changes both version strings
func (b *Bundle) SetVersion(version string) bool {
	return b.setKeys("changed app version to "+version, "app version was already "+version,
		version, "CFBundleShortVersionString", "CFBundleVersion")
}

// SetMinimumOS changes MinimumOSVersion
func (b *Bundle) SetMinimumOS(version string) (bool, error) {
	if !core.ValidMinimumOS(version) {
		return false, fmt.Errorf("%w: invalid OS version: %s", core.ErrInvalidInput, version)
	}
	return b.setKeys("set MinimumOSVersion to "+version, "MinimumOSVersion was already "+version,
		version, "MinimumOSVersion"), nil
}

// EnableDocuments turns on the document browser and file sharing
func (b *Bundle) EnableDocuments() bool {
	return b.setKeys("enabled documents support", "documents support was already enabled",
		true, "UISupportsDocumentBrowser", "UIFileSharingEnabled")
}

// SetBundleID replaces the bundle identifier, rewriting extension identifiers
// that embed the old one
func (b *Bundle) SetBundleID(id string) (bool, error) {
	orig := b.Info.String("CFBundleIdentifier")
	if orig == id {
		b.logger.Info("bundle id was already " + id)
		return false, nil
	}
	b.Info.Set("CFBundleIdentifier", id)
	b.logger.Infof("changed bundle id: %s -> %s", orig, id)
	b.changed = true

	if orig == "" {
		return true, nil
	}
	exts, _ := filepath.Glob(filepath.Join(b.Path, "PlugIns", "*.appex"))
	for _, ext := range exts {
		info, err := ReadInfo(ext)
		if err != nil {
			return true, fmt.Errorf("reading %s: %w", filepath.Base(ext), err)
		}
		old := info.String("CFBundleIdentifier")
		info.Set("CFBundleIdentifier", strings.ReplaceAll(old, orig, id))
		if err := info.Save(); err != nil {
			return true, err
		}
	}
	if len(exts) > 0 {
		b.logger.Infof("changed %d app extension ids", len(exts))
	}
	return true, nil
}

// AddURLSchemes registers schemes, with any "://" removed, as one URL type
func (b *Bundle) AddURLSchemes(schemes []string) bool {
	if len(schemes) == 0 {
		return false
	}
	clean := make([]any, 0, len(schemes))
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		s = strings.ReplaceAll(s, "://", "")
		clean = append(clean, s)
		names = append(names, s)
	}

	types, _ := b.Info.Values["CFBundleURLTypes"].([]any)
	types = append(types, map[string]any{
		"CFBundleURLName":    URLTypeName,
		"CFBundleURLSchemes": clean,
	})
	b.Info.Set("CFBundleURLTypes", types)
	b.logger.Info("added url schemes: " + strings.Join(names, ", "))
	b.changed = true
	return true
}

// MergePlist copies every top-level key of file into Info.plist. Nested
// values are replaced, not merged.
func (b *Bundle) MergePlist(file string) ([]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	merge := make(map[string]any)
	if _, err := plist.Unmarshal(data, &merge); err != nil {
		return nil, fmt.Errorf("%w: couldn't parse plist %s: %v", core.ErrInvalidInput, file, err)
	}

	var modified []string
	for k, v := range merge {
		if cur, ok := b.Info.Values[k]; ok && reflect.DeepEqual(cur, v) {
			continue
		}
		b.Info.Set(k, v)
		modified = append(modified, k)
	}

	if len(modified) == 0 {
		b.logger.Info("no modified plist entries")
		return nil, nil
	}
	b.logger.Info("merged plist, modified keys: " + strings.Join(modified, ", "))
	b.changed = true
	return modified, nil
}

// RemoveSupportedDevices deletes UISupportedDevices
func (b *Bundle) RemoveSupportedDevices() bool {
	if !b.Info.Delete("UISupportedDevices") {
		b.logger.Info("UISupportedDevices not present")
		return false
	}
	b.logger.Info("removed UISupportedDevices")
	b.changed = true
	return true
}

// RemoveExtensions deletes every app extension
func (b *Bundle) RemoveExtensions() (bool, error) {
	return b.removeDirs("app extensions", "PlugIns", "Extensions")
}

// RemoveWatchApp deletes the bundled watch app
func (b *Bundle) RemoveWatchApp() (bool, error) {
	return b.removeDirs("watch app", "Watch", "WatchKit", "com.apple.WatchPlaceholder")
}

func (b *Bundle) removeDirs(what string, names ...string) (bool, error) {
	removed := false
	for _, name := range names {
		dir := filepath.Join(b.Path, name)
		if _, err := os.Lstat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed = true
	}

	if !removed {
		b.logger.Info(what + " not present")
		return false, nil
	}
	b.logger.Info("removed " + what)
	b.changed = true
	return true, nil
}
