// Package render produces upright copies of images once their rotation is known.
package render

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // decoder for WebP sources

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

type Options struct {
	// LongestSide bounds the output; 0 keeps the source size.
	LongestSide int
	JPEGQuality int
}

// Upright rotates img clockwise by angle and scales it down to fit
// opts.LongestSide. An undefined angle leaves the pixels as they are.
func Upright(img image.Image, angle types.RotationAngle, opts Options) image.Image {
	if opts.LongestSide > 0 {
		img = imaging.Fit(img, opts.LongestSide, opts.LongestSide, imaging.Lanczos)
	}

	// imaging rotates counter-clockwise.
	switch angle {
	case types.Angle90:
		return imaging.Rotate270(img)
	case types.Angle180:
		return imaging.Rotate180(img)
	case types.Angle270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Render decodes src, makes it upright and writes it to dst as JPEG.
func Render(src io.Reader, dst io.Writer, angle types.RotationAngle, opts Options) error {
	img, err := imaging.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = 80
	}

	if err := imaging.Encode(dst, Upright(img, angle, opts), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// RenderFile is Render into a file at path. A partial file is removed on failure.
func RenderFile(src io.Reader, path string, angle types.RotationAngle, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := Render(src, out, angle, opts); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}
