package sensor

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+3] = 255
	}
	img.SetRGBA(7, 7, color.RGBA{255, 255, 255, 255})
	return img
}

func TestDecodeFrameFormats(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"png":  func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) },
		"jpeg": func(b *bytes.Buffer, m image.Image) error { return jpeg.Encode(b, m, nil) },
		"bmp":  func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) },
		"tiff": func(b *bytes.Buffer, m image.Image) error { return tiff.Encode(b, m, nil) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, enc(&buf, testImage()))

			img, format, err := DecodeFrame(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, name, format)
			assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	_, _, err := DecodeFrame(nil)
	assert.Error(t, err)

	_, _, err = DecodeFrame([]byte("garbage"))
	require.Error(t, err)
	assert.ErrorIs(t, err, image.ErrFormat)
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeFrameRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	_, _, err := DecodeFrame(withPNGSize(t, buf.Bytes(), 100000, 100000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	// within the limit the header passes and the short body fails instead
	_, _, err = DecodeFrame(withPNGSize(t, buf.Bytes(), 64, 64))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "exceeds")
}
