package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageService provides image processing operations for slide backgrounds
// and rendered derivatives.
//
// ImageService is used to:
//   - Load background images referenced by slides
//   - Scale backgrounds to cover an output canvas
//   - Encode rendered slides as PNG
//
// Example usage:
//
//	svc := NewImageService("/posts/spring-campaign")
//	bg, _ := svc.Load("assets/campus.jpg")
//	cover := svc.Cover(bg, 1080, 1350)
//	data, _ := svc.EncodePNG(ctx, cover)
type ImageService struct {
	baseDir string
}

// NewImageService creates an ImageService resolving relative image
// references against baseDir.
func NewImageService(baseDir string) *ImageService {
	return &ImageService{baseDir: baseDir}
}

// Load reads and decodes the image at ref.
//
// Relative references are resolved against the service's base directory.
// JPEG, PNG, GIF and WebP inputs are supported.
func (s *ImageService) Load(ref string) (image.Image, error) {
	path := ref
	if !filepath.IsAbs(path) && s.baseDir != "" {
		path = filepath.Join(s.baseDir, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Decode(data)
}

// Decode decodes image data in any registered format.
func (s *ImageService) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Cover scales src so it fully covers a width x height canvas, cropping the
// overflow evenly on both sides.
//
// The aspect ratio is preserved. The Catmull-Rom algorithm is used for
// high-quality resizing.
//
// Example:
//
//	// A 2000x1000 photo on a 1080x1080 canvas is scaled to 2160x1080
//	// and 540px are cropped from each side.
//	cover := svc.Cover(photo, 1080, 1080)
func (s *ImageService) Cover(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	b := src.Bounds()
	if b.Empty() || width <= 0 || height <= 0 {
		return dst
	}

	// Pick the source rectangle with the canvas aspect ratio
	srcW, srcH := b.Dx(), b.Dy()
	crop := b
	if srcW*height > srcH*width {
		// Source is wider: trim left and right
		w := srcH * width / height
		x0 := b.Min.X + (srcW-w)/2
		crop = image.Rect(x0, b.Min.Y, x0+w, b.Max.Y)
	} else {
		// Source is taller: trim top and bottom
		h := srcW * height / width
		y0 := b.Min.Y + (srcH-h)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+h)
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// EncodePNG encodes img as PNG.
//
// Output is deterministic for identical pixels: no timestamps or other
// metadata chunks are written.
func (s *ImageService) EncodePNG(ctx context.Context, img image.Image) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
