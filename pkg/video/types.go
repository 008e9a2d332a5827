package video

import (
	"errors"
	"image/color"

	"github.com/speedtrail/speedtrail/pkg/kinematics"
	"github.com/speedtrail/speedtrail/pkg/units"
)

var (
	//ErrUnknownTracker is returned for a tracking algorithm name we can't build
	ErrUnknownTracker = errors.New("video: unknown tracking algorithm")
	//ErrTrackerInit is returned when the tracker rejects the initial frame and region
	ErrTrackerInit = errors.New("video: tracker could not be initialized")
	//ErrFrameMismatch is returned when a frame's size or type differs from the trail buffer
	ErrFrameMismatch = errors.New("video: frame does not match trail buffer")
	//ErrSelectionCancelled is returned when the user closes ROI selection without a region
	ErrSelectionCancelled = errors.New("video: user cancelled roi selection")
)

//TrailStyle is the fixed look of trail segments
type TrailStyle struct {
	Color     color.RGBA
	Thickness int
}

//DefaultTrailStyle draws red lines two pixels wide
var DefaultTrailStyle = TrailStyle{Color: color.RGBA{255, 0, 0, 0}, Thickness: 2}

//Options holds everything a tracking job needs besides its input and output
type Options struct {
	Algorithm   string
	GapPolicy   kinematics.GapPolicy
	Opacity     float64
	Trail       TrailStyle
	Codec       string
	Calibration units.Calibration
}

//DefaultOptions mirrors the defaults registered in SetDefaults
func DefaultOptions() Options {
	return Options{
		Algorithm:   AlgorithmKCF,
		GapPolicy:   kinematics.GapBridge,
		Opacity:     0.5,
		Trail:       DefaultTrailStyle,
		Codec:       "XVID",
		Calibration: units.Calibration{Unit: units.PXPS},
	}
}
