// Package testutil builds tiny EXIF-bearing files for tests.
package testutil

import (
	"os"
	"testing"
)

// OrientationTIFF returns a little-endian TIFF whose IFD0 holds a single
// Orientation (0x0112, SHORT) entry.
func OrientationTIFF(value uint16) []byte {
	return []byte{
		0x49, 0x49, 0x2A, 0x00, // little-endian TIFF header
		0x08, 0x00, 0x00, 0x00, // first IFD offset
		0x01, 0x00, // number of IFD entries
		0x12, 0x01, // tag ID 0x0112
		0x03, 0x00, // SHORT type
		0x01, 0x00, 0x00, 0x00, // count
		byte(value & 0xFF), byte(value >> 8), 0x00, 0x00, // inline value
		0x00, 0x00, 0x00, 0x00, // next IFD offset
	}
}

// MinimalTIFF returns a valid TIFF with an empty IFD0.
func MinimalTIFF() []byte {
	return []byte{
		0x49, 0x49, 0x2A, 0x00,
		0x08, 0x00, 0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
}

// OrientationJPEG wraps OrientationTIFF in a JPEG SOI + APP1 "Exif" segment.
func OrientationJPEG(value uint16) []byte {
	payload := append([]byte("Exif\x00\x00"), OrientationTIFF(value)...)
	size := len(payload) + 2

	data := []byte{0xFF, 0xD8, 0xFF, 0xE1, byte(size >> 8), byte(size & 0xFF)}
	data = append(data, payload...)
	return append(data, 0xFF, 0xD9)
}

// WriteFile writes data to path or fails the test.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
