package logic

import (
	"image"
	"image/color"
)

// RGB is one 8-bit pixel.
type RGB struct {
	R, G, B uint8
}

// FrameSample is a grid of pixels taken from one frame at a fixed stride.
type FrameSample struct {
	Width  int // sampled columns
	Height int // sampled rows
	Pixels []RGB
}

// Verdict is the per-frame classification result.
type Verdict struct {
	IsBlack          bool
	BlackPercentage  float64
	AvgBrightness    float64
	BrightPercentage float64
	Sampled          int
}

// SampleImage extracts every stride-th pixel in both axes, starting at the
// top-left corner of the image bounds.
func SampleImage(img image.Image, stride int) FrameSample {
	if stride < 1 {
		stride = 1
	}
	b := img.Bounds()
	cols := (b.Dx() + stride - 1) / stride
	rows := (b.Dy() + stride - 1) / stride
	if cols <= 0 || rows <= 0 {
		return FrameSample{}
	}

	fs := FrameSample{
		Width:  cols,
		Height: rows,
		Pixels: make([]RGB, 0, cols*rows),
	}

	switch src := img.(type) {
	case *image.YCbCr:
		for y := b.Min.Y; y < b.Max.Y; y += stride {
			for x := b.Min.X; x < b.Max.X; x += stride {
				yi := src.YOffset(x, y)
				ci := src.COffset(x, y)
				r, g, bl := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				fs.Pixels = append(fs.Pixels, RGB{r, g, bl})
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y += stride {
			for x := b.Min.X; x < b.Max.X; x += stride {
				i := src.PixOffset(x, y)
				fs.Pixels = append(fs.Pixels, RGB{src.Pix[i], src.Pix[i+1], src.Pix[i+2]})
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y += stride {
			for x := b.Min.X; x < b.Max.X; x += stride {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				fs.Pixels = append(fs.Pixels, RGB{c.R, c.G, c.B})
			}
		}
	}
	return fs
}

// Classify decides whether a sampled frame shows a black object against a
// lighter background.
func Classify(frame FrameSample, th Thresholds) Verdict {
	n := len(frame.Pixels)
	if n == 0 {
		return Verdict{}
	}

	var blackCount, brightCount, totalBrightness int
	for _, p := range frame.Pixels {
		r, g, b := int(p.R), int(p.G), int(p.B)
		brightness := (r + g + b) / 3
		totalBrightness += brightness

		if r < th.BlackChannelMax && g < th.BlackChannelMax && b < th.BlackChannelMax &&
			brightness < th.BlackChannelMax {
			blackCount++
		}
		if brightness > th.BrightPixelMin {
			brightCount++
		}
	}

	v := Verdict{
		BlackPercentage:  100 * float64(blackCount) / float64(n),
		AvgBrightness:    float64(totalBrightness) / float64(n),
		BrightPercentage: 100 * float64(brightCount) / float64(n),
		Sampled:          n,
	}
	// A uniformly dim frame is low light, not a black object: require contrast.
	v.IsBlack = v.BlackPercentage >= th.BlackPercentMin &&
		v.AvgBrightness < th.AvgBrightnessMax &&
		v.BrightPercentage >= th.BrightPercentMin
	return v
}

// ClassifyImage samples img at the configured stride and classifies it.
func ClassifyImage(img image.Image, th Thresholds) Verdict {
	return Classify(SampleImage(img, th.SampleStride), th)
}
