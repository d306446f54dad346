// Package index stores auxiliary orientation values for images whose EXIF
// cannot be read, keyed by image reference.
package index

import (
	"fmt"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

type Backend string

const (
	BackendJSON Backend = "json"
	BackendBolt Backend = "bolt"
)

// Store is a persistent ref -> raw orientation map.
type Store interface {
	Lookup(ref types.ImageRef) (int, bool, error)
	Set(ref types.ImageRef, raw int) error
	Delete(ref types.ImageRef) error
	List() ([]types.IndexEntry, error)
	Close() error
}

func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		s, err := LoadJSON(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBolt:
		s, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", backend)
	}
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func validate(ref types.ImageRef, raw int) error {
	if ref == "" {
		return &ValidationError{Field: "ref", Message: "reference is required"}
	}
	if raw < 0 || raw > int(types.OrientationUndefined) {
		return &ValidationError{Field: "raw", Message: fmt.Sprintf("orientation %d out of range 0-9", raw)}
	}
	return nil
}
