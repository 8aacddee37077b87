package codegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/domain"
)

const (
	// MaxImageDimension bounds the long edge of the image sent upstream.
	MaxImageDimension = 2000
	// MaxImagePixels caps width*height as declared by the image header.
	MaxImagePixels = 50_000_000
	jpegQuality    = 90
)

// CheckImageSize reads only the image header and rejects images whose declared
// dimensions exceed MaxImagePixels, before any pixel buffer is allocated.
func CheckImageSize(data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: cannot read image header: %v", domain.ErrValidation, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s image has no pixels", domain.ErrValidation, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return fmt.Errorf("%w: %s image is %dx%d, limit is %d pixels",
			domain.ErrValidation, format, cfg.Width, cfg.Height, MaxImagePixels)
	}
	return nil
}

// PrepareImage checks the declared size, decodes a png, jpeg, gif or webp
// screenshot, scales it down so that neither side exceeds MaxImageDimension
// and re-encodes it as JPEG on a white background. It returns the encoded
// bytes and their media type.
func PrepareImage(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", generationErrorf("image is empty")
	}
	if err := CheckImageSize(data); err != nil {
		return nil, "", err
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", generationErrorf("cannot decode image: %v", err)
	}

	b := src.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), MaxImageDimension)
	if w == 0 || h == 0 {
		return nil, "", generationErrorf("image %s has no pixels", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", generationErrorf("cannot encode image: %v", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func scaledSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := h * limit / w
		if nh < 1 {
			nh = 1
		}
		return limit, nh
	}
	nw := w * limit / h
	if nw < 1 {
		nw = 1
	}
	return nw, limit
}
