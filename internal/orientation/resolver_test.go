package orientation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

type fakeExif int

func (f fakeExif) OrientationTag() int { return int(f) }

// fakeReader parses "tag=N" payloads and fails on anything else.
type fakeReader struct {
	files map[string]int
}

func (r *fakeReader) OpenFile(path string) (ExifData, error) {
	tag, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return fakeExif(tag), nil
}

func (r *fakeReader) OpenStream(s io.Reader) (ExifData, error) {
	body, err := io.ReadAll(s)
	if err != nil {
		return nil, err
	}
	var tag int
	if _, err := fmt.Sscanf(string(body), "tag=%d", &tag); err != nil {
		return nil, errors.New("exif: failed to find exif intro marker")
	}
	return fakeExif(tag), nil
}

type trackedStream struct {
	io.Reader
	loc *countingLocator
}

func (s *trackedStream) Close() error {
	s.loc.closed++
	return nil
}

// countingLocator classifies "file:" refs as local files and "content:" refs as streams,
// and tracks open/close counts on every stream it hands out.
type countingLocator struct {
	streams        map[types.ImageRef]string
	fallbacks      map[types.ImageRef]int
	openErr        error
	opened         int
	closed         int
	fallbacksAsked int
}

func (l *countingLocator) Classify(ref types.ImageRef) (types.Location, error) {
	s := string(ref)
	switch {
	case strings.HasPrefix(s, "file://"):
		return types.Location{Kind: types.RefKindLocalFile, Path: strings.TrimPrefix(s, "file://")}, nil
	case strings.HasPrefix(s, "content://"):
		return types.Location{Kind: types.RefKindRemoteHandle}, nil
	default:
		return types.Location{}, fmt.Errorf("unsupported scheme in %q", s)
	}
}

func (l *countingLocator) OpenStream(ctx context.Context, ref types.ImageRef) (io.ReadCloser, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	body, ok := l.streams[ref]
	if !ok {
		return nil, errors.New("no content")
	}
	l.opened++
	return &trackedStream{Reader: strings.NewReader(body), loc: l}, nil
}

func (l *countingLocator) FallbackOrientation(ctx context.Context, ref types.ImageRef) (int, bool) {
	l.fallbacksAsked++
	raw, ok := l.fallbacks[ref]
	return raw, ok
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newFixture() (*fakeReader, *countingLocator) {
	reader := &fakeReader{files: map[string]int{
		"/photos/rot90.jpg":  6,
		"/photos/normal.jpg": 1,
		"/photos/notag.jpg":  9,
	}}
	loc := &countingLocator{
		streams: map[types.ImageRef]string{
			"content://media/1": "tag=8",
			"content://media/2": "garbage",
			"content://media/3": "tag=3",
		},
		fallbacks: map[types.ImageRef]int{
			"file:///photos/broken.jpg": 3,
			"content://media/2":         6,
		},
	}
	return reader, loc
}

func TestResolve_FileWithRotate90TagReturns90(t *testing.T) {
	reader, loc := newFixture()

	angle, err := Resolve(context.Background(), "file:///photos/rot90.jpg", reader, loc)

	require.NoError(t, err)
	assert.Equal(t, types.Angle90, angle)
	assert.Equal(t, 0, loc.fallbacksAsked, "fallback must not be consulted when exif is readable")
}

func TestResolve_FileWithoutExifUsesFallback(t *testing.T) {
	reader, loc := newFixture()
	logger := &recordingLogger{}
	r := New(reader, loc)
	r.SetLogger(logger)

	res, err := r.ResolveDetailed(context.Background(), "file:///photos/broken.jpg")

	require.NoError(t, err)
	assert.Equal(t, types.Angle180, res.Angle)
	assert.Equal(t, types.SourceFallback, res.Source)
	assert.Equal(t, types.OrientationRotate180, res.Raw)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "Unable to read exif data")
}

func TestResolve_NoExifNoFallbackIsUndefined(t *testing.T) {
	reader, loc := newFixture()

	angle, err := Resolve(context.Background(), "file:///photos/missing.jpg", reader, loc)

	require.NoError(t, err)
	assert.Equal(t, types.AngleUndefined, angle)
	assert.NotEqual(t, types.Angle0, angle)
	assert.False(t, angle.IsDefined())
}

func TestResolve_TagAbsentIsZeroNotUndefined(t *testing.T) {
	reader, loc := newFixture()

	angle, err := Resolve(context.Background(), "file:///photos/notag.jpg", reader, loc)

	require.NoError(t, err)
	assert.Equal(t, types.Angle0, angle)
}

func TestResolve_InvalidRefReportsLocatorFailure(t *testing.T) {
	reader, loc := newFixture()

	angle, err := Resolve(context.Background(), "ftp://nowhere/a.jpg", reader, loc)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocatorFailure))
	var lerr *LocatorError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, types.ImageRef("ftp://nowhere/a.jpg"), lerr.Ref)
	assert.Equal(t, types.AngleUndefined, angle)
	assert.Equal(t, 0, loc.fallbacksAsked)
}

func TestResolve_StreamPathReadsExif(t *testing.T) {
	reader, loc := newFixture()

	res, err := New(reader, loc).ResolveDetailed(context.Background(), "content://media/1")

	require.NoError(t, err)
	assert.Equal(t, types.Angle270, res.Angle)
	assert.Equal(t, types.SourceEXIFStream, res.Source)
	assert.Equal(t, loc.opened, loc.closed)
}

func TestResolve_StreamParseFailureFallsBack(t *testing.T) {
	reader, loc := newFixture()

	angle, err := Resolve(context.Background(), "content://media/2", reader, loc)

	require.NoError(t, err)
	assert.Equal(t, types.Angle90, angle)
	assert.Equal(t, 1, loc.opened)
	assert.Equal(t, 1, loc.closed)
}

func TestResolve_StreamOpenFailureFallsBackOnce(t *testing.T) {
	reader, loc := newFixture()
	loc.openErr = errors.New("permission denied")
	loc.fallbacks["content://media/9"] = 8

	angle, err := Resolve(context.Background(), "content://media/9", reader, loc)

	require.NoError(t, err)
	assert.Equal(t, types.Angle270, angle)
	assert.Equal(t, 0, loc.opened)
	assert.Equal(t, 1, loc.fallbacksAsked)
}

func TestResolve_FallbackMatchesDirectRead(t *testing.T) {
	for _, raw := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 42} {
		t.Run(fmt.Sprintf("raw=%d", raw), func(t *testing.T) {
			reader := &fakeReader{files: map[string]int{"/direct.jpg": raw}}
			loc := &countingLocator{fallbacks: map[types.ImageRef]int{"file:///broken.jpg": raw}}
			r := New(reader, loc)

			direct, err := r.Resolve(context.Background(), "file:///direct.jpg")
			require.NoError(t, err)
			viaFallback, err := r.Resolve(context.Background(), "file:///broken.jpg")
			require.NoError(t, err)

			assert.Equal(t, direct, viaFallback)
		})
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	reader, loc := newFixture()
	r := New(reader, loc)

	for _, ref := range []types.ImageRef{"file:///photos/rot90.jpg", "content://media/3", "content://media/2", "file:///photos/missing.jpg"} {
		first, err := r.Resolve(context.Background(), ref)
		require.NoError(t, err)
		second, err := r.Resolve(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, first, second, ref)
	}
}

func TestResolve_ReleasesEveryStream(t *testing.T) {
	reader, loc := newFixture()
	r := New(reader, loc)

	refs := []types.ImageRef{"content://media/1", "content://media/2", "content://media/3", "content://media/404", "bad"}
	for _, ref := range refs {
		_, _ = r.Resolve(context.Background(), ref)
	}

	assert.Equal(t, 3, loc.opened)
	assert.Equal(t, loc.opened, loc.closed)
}

func TestSetLogger_NilFallsBackToNop(t *testing.T) {
	reader, loc := newFixture()
	r := New(reader, loc)
	r.SetLogger(nil)

	assert.NotPanics(t, func() {
		_, _ = r.Resolve(context.Background(), "file:///photos/missing.jpg")
	})
}

type nilReader struct{}

func (nilReader) OpenFile(string) (ExifData, error)      { return nil, nil }
func (nilReader) OpenStream(io.Reader) (ExifData, error) { return nil, nil }

func TestResolve_NilExifDataIsTreatedAsUnavailable(t *testing.T) {
	_, loc := newFixture()

	angle, err := Resolve(context.Background(), "file:///photos/broken.jpg", nilReader{}, loc)

	require.NoError(t, err)
	assert.Equal(t, types.Angle180, angle)
}
