package sensor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxFramePixels caps the declared size of an encoded frame. 4096x4096
// covers any camera the gate is fed by.
const MaxFramePixels = 4096 * 4096

// DecodeFrame decodes one encoded camera frame. JPEG, PNG, GIF, BMP, TIFF
// and WebP are accepted.
func DecodeFrame(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("decode frame: empty payload")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxFramePixels {
		return nil, "", fmt.Errorf("decode frame: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxFramePixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}
	return img, format, nil
}
