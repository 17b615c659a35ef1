package sketch

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
)

// Format is an output image encoding.
type Format int

const (
	PNG Format = iota
	WebP
)

func (f Format) String() string {
	if f == WebP {
		return "webp"
	}
	return "png"
}

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".webp":
		return WebP, nil
	}
	return PNG, fmt.Errorf("sketch: unsupported output %q (want .png or .webp)", path)
}

// Encode writes img to w.
func Encode(w io.Writer, img image.Image, f Format) error {
	if f == WebP {
		// lossless VP8L
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("sketch: webp encode: %w", err)
		}
		return nil
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("sketch: png encode: %w", err)
	}
	return nil
}

// WriteFile encodes img into path, choosing the format from its extension.
func WriteFile(path string, img image.Image) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sketch: create %s: %w", path, err)
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// LoadBackdrop reads a PNG, JPEG or TGA floor image.
func LoadBackdrop(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sketch: open backdrop: %w", err)
	}
	defer f.Close()

	// TGA has no magic number, so dispatch on the extension rather than
	// sniffing with image.Decode.
	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tga":
		img, err = tga.Decode(f)
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	default:
		return nil, fmt.Errorf("sketch: unsupported backdrop %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("sketch: decode backdrop %s: %w", path, err)
	}
	return img, nil
}
