package tray

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// Icon represents icon of the system tray item.
type Icon struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// pixmap is the D-Bus representation of [Icon], (iiay).
type pixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// NewIconFromImage returns a new [Icon] from img.
//
// Pixels are stored as ARGB32 in network byte order, which is the format of
// StatusNotifierItem pixmaps.
func NewIconFromImage(img image.Image) *Icon {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	bytes := make([]byte, 0, width*height*4)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// RGBA returns alpha-premultiplied 16-bit values.
			r, g, b, a := img.At(x, y).RGBA()
			r, g, b = unpremultiply(r, a), unpremultiply(g, a), unpremultiply(b, a)

			bytes = append(bytes, byte(a>>8), byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	return &Icon{
		Width:  int32(width),
		Height: int32(height),
		Bytes:  bytes,
	}
}

// NewIconFromFile returns a new [Icon] decoded from a PNG file.
func NewIconFromFile(path string) (*Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("icon: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("icon: failed to decode %s: %w", path, err)
	}

	return NewIconFromImage(img), nil
}

// toDBus returns D-Bus representation of the icon. A nil icon is an empty
// pixmap array.
func (icon *Icon) toDBus() []pixmap {
	if icon == nil {
		return []pixmap{}
	}

	return []pixmap{{
		Width:  icon.Width,
		Height: icon.Height,
		Bytes:  icon.Bytes,
	}}
}

func unpremultiply(c, a uint32) uint32 {
	if a == 0 {
		return 0
	}

	return c * 0xffff / a
}
