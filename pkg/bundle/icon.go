// pkg/bundle/icon.go
package bundle

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Icon sizes written by SetIcon, in pixels
const (
	iPhoneIconSize = 120
	iPadIconSize   = 152
)

// SetIcon replaces the app icon with the image at path. The icon gets a
// fresh name so SpringBoard does not serve a cached one.
func (b *Bundle) SetIcon(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding icon %s: %w", path, err)
	}

	prefix := fmt.Sprintf("zule_%d_", b.now().Unix())
	iphone := prefix + "60x60"
	ipad := prefix + "76x76"

	if err := writeIcon(src, iPhoneIconSize, filepath.Join(b.Path, iphone+"@2x.png")); err != nil {
		return err
	}
	if err := writeIcon(src, iPadIconSize, filepath.Join(b.Path, ipad+"@2x~ipad.png")); err != nil {
		return err
	}

	b.Info.Set("CFBundleIcons", map[string]any{
		"CFBundlePrimaryIcon": map[string]any{
			"CFBundleIconFiles": []any{iphone},
			"CFBundleIconName":  prefix,
		},
	})
	b.Info.Set("CFBundleIcons~ipad", map[string]any{
		"CFBundlePrimaryIcon": map[string]any{
			"CFBundleIconFiles": []any{iphone, ipad},
			"CFBundleIconName":  prefix,
		},
	})

	b.logger.Info("updated app icon")
	b.changed = true
	return nil
}

func writeIcon(src image.Image, size int, path string) error {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, dst); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return out.Close()
}
