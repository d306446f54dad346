// Package orientation resolves the display rotation of a photo from its EXIF
// Orientation tag, falling back to an auxiliary orientation value when the
// metadata cannot be read.
package orientation

import (
	"context"
	"fmt"
	"io"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

// ExifData is a parsed EXIF block.
type ExifData interface {
	// OrientationTag returns the raw Orientation value, or 9 (undefined) when the tag is absent.
	OrientationTag() int
}

// ExifReader parses EXIF segments. Only construction may fail.
type ExifReader interface {
	OpenFile(path string) (ExifData, error)
	OpenStream(r io.Reader) (ExifData, error)
}

// ResourceLocator turns a reference into something readable.
type ResourceLocator interface {
	Classify(ref types.ImageRef) (types.Location, error)
	OpenStream(ctx context.Context, ref types.ImageRef) (io.ReadCloser, error)
	FallbackOrientation(ctx context.Context, ref types.ImageRef) (int, bool)
}

// Logger receives informational messages about unreadable metadata.
type Logger interface {
	Infof(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}

type Resolver struct {
	reader  ExifReader
	locator ResourceLocator
	logger  Logger
}

func New(reader ExifReader, locator ResourceLocator) *Resolver {
	return &Resolver{
		reader:  reader,
		locator: locator,
		logger:  nopLogger{},
	}
}

func (r *Resolver) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	r.logger = l
}

// Resolve is a one-shot helper for callers that do not keep a Resolver around.
func Resolve(ctx context.Context, ref types.ImageRef, reader ExifReader, locator ResourceLocator) (types.RotationAngle, error) {
	return New(reader, locator).Resolve(ctx, ref)
}

// Resolve returns the rotation for ref, or types.AngleUndefined when neither
// EXIF nor a fallback value is available. The only error it returns is a
// *LocatorError for references that cannot be classified.
func (r *Resolver) Resolve(ctx context.Context, ref types.ImageRef) (types.RotationAngle, error) {
	res, err := r.ResolveDetailed(ctx, ref)
	return res.Angle, err
}

// ResolveDetailed is Resolve plus the raw tag and where it came from.
func (r *Resolver) ResolveDetailed(ctx context.Context, ref types.ImageRef) (types.Resolution, error) {
	res := types.Resolution{Ref: ref, Angle: types.AngleUndefined, Source: types.SourceNone}

	loc, err := r.locator.Classify(ref)
	if err != nil {
		lerr := &LocatorError{Ref: ref, Err: err}
		res.Error = lerr.Error()
		return res, lerr
	}

	data, source, err := r.readExif(ctx, ref, loc)
	if err == nil {
		raw := data.OrientationTag()
		res.Raw = types.OrientationTag(raw)
		res.Angle = AngleForTag(raw)
		res.Source = source
		return res, nil
	}

	r.logger.Infof("Unable to read exif data from %s: %v", ref, err)

	if raw, ok := r.locator.FallbackOrientation(ctx, ref); ok {
		res.Raw = types.OrientationTag(raw)
		res.Angle = AngleForTag(raw)
		res.Source = types.SourceFallback
	}

	return res, nil
}

// readExif makes exactly one attempt on the access path the location allows.
func (r *Resolver) readExif(ctx context.Context, ref types.ImageRef, loc types.Location) (ExifData, types.ResolutionSource, error) {
	if loc.Kind == types.RefKindLocalFile {
		data, err := r.reader.OpenFile(loc.Path)
		if err != nil {
			return nil, types.SourceEXIFFile, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
		}
		if data == nil {
			return nil, types.SourceEXIFFile, fmt.Errorf("%w: no exif in %s", ErrMetadataUnavailable, loc.Path)
		}
		return data, types.SourceEXIFFile, nil
	}

	stream, err := r.locator.OpenStream(ctx, ref)
	if err != nil {
		return nil, types.SourceEXIFStream, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	if stream == nil {
		return nil, types.SourceEXIFStream, fmt.Errorf("%w: no stream for %s", ErrMetadataUnavailable, ref)
	}
	defer stream.Close()

	data, err := r.reader.OpenStream(stream)
	if err != nil {
		return nil, types.SourceEXIFStream, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	if data == nil {
		return nil, types.SourceEXIFStream, fmt.Errorf("%w: no exif in stream for %s", ErrMetadataUnavailable, ref)
	}
	return data, types.SourceEXIFStream, nil
}
