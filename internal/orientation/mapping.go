package orientation

import "github.com/On-Jun9/ShutterOrient/pkg/types"

// AngleForTag maps a raw EXIF Orientation value to a clockwise display rotation.
// Mirrored variants, Normal, Undefined and unknown values all map to 0.
func AngleForTag(raw int) types.RotationAngle {
	switch types.OrientationTag(raw) {
	case types.OrientationRotate180:
		return types.Angle180
	case types.OrientationRotate90:
		return types.Angle90
	case types.OrientationRotate270:
		return types.Angle270
	default:
		return types.Angle0
	}
}
