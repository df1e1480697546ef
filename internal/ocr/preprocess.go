package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PreprocessOptions tunes the image cleanup that runs before recognition.
type PreprocessOptions struct {
	// MinWidth upscales narrower images; phone crops of a label are often
	// too small for Tesseract's glyph models.
	MinWidth int
	// MaxWidth downscales wider images. Zero disables the limit.
	MaxWidth int
	// Window is the side of the square neighbourhood used for the adaptive
	// threshold. Even values are rounded up.
	Window int
	// Offset is subtracted from the neighbourhood mean.
	Offset int
	// Despeckle removes isolated pixels left over after thresholding.
	Despeckle bool
	// MaxPixels bounds both the decoded input and the resized output.
	// Zero means DefaultMaxPixels.
	MaxPixels int
}

// DefaultMaxPixels caps the area of decoded and resized images.
const DefaultMaxPixels = 24_000_000

// maxAspect bounds the output height relative to its width.
const maxAspect = 4

// DefaultPreprocessOptions mirrors the settings used for ingredient labels.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		MinWidth:  1000,
		MaxWidth:  3000,
		Window:    11,
		Offset:    2,
		Despeckle: true,
		MaxPixels: DefaultMaxPixels,
	}
}

// Prepared is a preprocessed image ready for recognition.
type Prepared struct {
	PNG    []byte
	Width  int
	Height int
	// Format is the decoder name of the original payload (png, jpeg, ...).
	Format string
}

// Preprocess decodes data and produces a binarized grayscale PNG.
func Preprocess(data []byte, opts PreprocessOptions) (*Prepared, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, maxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if src.Bounds().Empty() {
		return nil, ErrInvalidImage
	}

	gray := toGray(resize(src, opts.MinWidth, opts.MaxWidth, maxPixels))
	binary := adaptiveThreshold(gray, opts.Window, opts.Offset)
	if opts.Despeckle {
		binary = despeckle(binary)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, binary); err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	b := binary.Bounds()
	return &Prepared{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// resize scales src so its width lands in [minWidth, maxWidth]. The scale is
// clamped so the output stays within maxAspect times its target width in
// height and within maxPixels overall; extreme strips are shrunk instead.
func resize(src image.Image, minWidth, maxWidth, maxPixels int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	switch {
	case minWidth > 0 && w < minWidth:
		scale = float64(minWidth) / float64(w)
	case maxWidth > 0 && w > maxWidth:
		scale = float64(maxWidth) / float64(w)
	}
	if limit := maxAspect * max(minWidth, maxWidth, w); float64(h)*scale > float64(limit) {
		scale = float64(limit) / float64(h)
	}
	if area := float64(w) * float64(h) * scale * scale; area > float64(maxPixels) {
		scale *= math.Sqrt(float64(maxPixels) / area)
	}
	if scale == 1 {
		return src
	}
	targetWidth := max(int(math.Round(float64(w)*scale)), 1)
	targetHeight := max(int(math.Round(float64(h)*scale)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(gray, gray.Bounds(), src, b.Min, xdraw.Src)
	return gray
}

// adaptiveThreshold marks a pixel white when it is brighter than the mean of
// its neighbourhood minus offset. Sums come from an integral image so the
// cost does not depend on the window size.
func adaptiveThreshold(gray *image.Gray, window, offset int) *image.Gray {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w + 1
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(gray.Pix[y*gray.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	half := window / 2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w-1, x+half)
			count := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			if int64(gray.Pix[y*gray.Stride+x])*count > sum-int64(offset)*count {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// despeckle applies a 3x3 majority filter to a binary image.
func despeckle(bin *image.Gray) *image.Gray {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var black, total int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					total++
					if bin.Pix[ny*bin.Stride+nx] == 0 {
						black++
					}
				}
			}
			if black*2 <= total {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
