package preview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"
)

// downsample scales the supersampled render to the final edge length.
func downsample(src *image.NRGBA, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WriteImage writes img to path, choosing the codec from the extension.
// Supported: .webp, .tga.
func WriteImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: create %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	case ".tga":
		err = tga.Encode(f, img)
	default:
		err = fmt.Errorf("preview: unsupported extension %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
