package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/On-Jun9/ShutterOrient/internal/orientation"
	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// EXIFReader decodes EXIF blocks with goexif. It reads JPEG (APP1) and bare TIFF input.
type EXIFReader struct{}

func NewEXIFReader() *EXIFReader {
	return &EXIFReader{}
}

// EXIFData wraps a decoded block and exposes the Orientation tag only.
type EXIFData struct {
	x *exif.Exif
}

func (e *EXIFReader) OpenFile(path string) (orientation.ExifData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return e.decode(f)
}

func (e *EXIFReader) OpenStream(r io.Reader) (orientation.ExifData, error) {
	if r == nil {
		return nil, errors.New("nil stream")
	}
	return e.decode(r)
}

func (e *EXIFReader) decode(r io.Reader) (*EXIFData, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// goexif hands back a partial block alongside non-critical tag errors.
		if x != nil && !exif.IsCriticalError(err) {
			return &EXIFData{x: x}, nil
		}
		return nil, fmt.Errorf("no EXIF data: %w", err)
	}
	return &EXIFData{x: x}, nil
}

func (d *EXIFData) OrientationTag() int {
	if d == nil || d.x == nil {
		return int(types.OrientationUndefined)
	}

	tag, err := d.x.Get(exif.Orientation)
	if err != nil || tag == nil || tag.Count == 0 {
		return int(types.OrientationUndefined)
	}

	v, err := tag.Int(0)
	if err != nil {
		return int(types.OrientationUndefined)
	}
	return v
}
