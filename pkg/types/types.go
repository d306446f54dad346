// Package types defines core data structures used across ShutterOrient modules.
package types

import (
	"strconv"
	"time"
)

// ImageRef is an opaque, scheme-qualified image identifier
// (e.g., "file:///photos/a.jpg", "/photos/a.jpg", "content://media/42").
type ImageRef string

func (r ImageRef) String() string {
	return string(r)
}

// OrientationTag is the raw EXIF/TIFF Orientation (0x0112) value.
type OrientationTag int

const (
	OrientationNormal     OrientationTag = 1
	OrientationFlipH      OrientationTag = 2
	OrientationRotate180  OrientationTag = 3
	OrientationFlipV      OrientationTag = 4
	OrientationTranspose  OrientationTag = 5
	OrientationRotate90   OrientationTag = 6
	OrientationTransverse OrientationTag = 7
	OrientationRotate270  OrientationTag = 8
	// OrientationUndefined is reported when the tag is absent or unreadable.
	OrientationUndefined OrientationTag = 9
)

// RotationAngle is the clockwise rotation in degrees needed to display an image upright.
type RotationAngle int

const (
	Angle0   RotationAngle = 0
	Angle90  RotationAngle = 90
	Angle180 RotationAngle = 180
	Angle270 RotationAngle = 270
	// AngleUndefined means no metadata was available at all. It is not the same as Angle0.
	AngleUndefined RotationAngle = -1
)

// IsDefined reports whether the angle carries a real rotation value.
func (a RotationAngle) IsDefined() bool {
	return a != AngleUndefined
}

func (a RotationAngle) String() string {
	if a == AngleUndefined {
		return "undefined"
	}
	return strconv.Itoa(int(a))
}

// RefKind tells whether a reference points at a local file or at something only readable as a stream.
type RefKind string

const (
	RefKindLocalFile    RefKind = "file"
	RefKindRemoteHandle RefKind = "remote"
)

// Location is the classification of an ImageRef.
type Location struct {
	Kind RefKind
	// Path is set only for RefKindLocalFile.
	Path string
}

// ResolutionSource indicates where an angle came from.
type ResolutionSource string

const (
	SourceEXIFFile   ResolutionSource = "exif:file"
	SourceEXIFStream ResolutionSource = "exif:stream"
	SourceFallback   ResolutionSource = "fallback"
	SourceNone       ResolutionSource = "none"
)

// Resolution is the full outcome of resolving one reference.
type Resolution struct {
	Ref    ImageRef         `json:"ref"`
	Angle  RotationAngle    `json:"angle"`
	Raw    OrientationTag   `json:"raw,omitempty"`
	Source ResolutionSource `json:"source"`
	// Error is set when the reference itself could not be resolved.
	Error string `json:"error,omitempty"`
}

// FileEntry represents a scanned image file.
type FileEntry struct {
	// Path is the absolute path to the file.
	Path string
	// Name is the base filename.
	Name string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file modification time.
	ModTime time.Time
	// Extension is the lowercase file extension without dot (e.g., "jpg", "tiff").
	Extension string
}

// IndexEntry is one row of the auxiliary orientation index.
type IndexEntry struct {
	Ref       ImageRef  `json:"ref"`
	Raw       int       `json:"raw"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunSummary contains statistics for a completed batch run.
type RunSummary struct {
	RunID        string
	TotalFiles   int
	Rotate0      int
	Rotate90     int
	Rotate180    int
	Rotate270    int
	Undefined    int
	FromFallback int
	Failed       int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// Add counts one resolution into the summary.
func (s *RunSummary) Add(r Resolution) {
	s.TotalFiles++
	if r.Error != "" {
		s.Failed++
		return
	}
	if r.Source == SourceFallback {
		s.FromFallback++
	}
	switch r.Angle {
	case Angle0:
		s.Rotate0++
	case Angle90:
		s.Rotate90++
	case Angle180:
		s.Rotate180++
	case Angle270:
		s.Rotate270++
	default:
		s.Undefined++
	}
}
