package video

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

//Supported tracking algorithms
const (
	AlgorithmKCF  = "kcf"
	AlgorithmCSRT = "csrt"
	AlgorithmMIL  = "mil"
)

//Tracker adapts an OpenCV tracker to the session's two-call contract.
//The filter itself stays inside OpenCV; we only translate its bool results.
type Tracker struct {
	name string
	impl gocv.Tracker
}

//NewTracker creates a tracker for the given algorithm name (kcf, csrt or mil)
func NewTracker(algorithm string) (*Tracker, error) {
	name := strings.ToLower(strings.TrimSpace(algorithm))

	var impl gocv.Tracker
	switch name {
	case AlgorithmKCF, "":
		name = AlgorithmKCF
		impl = contrib.NewTrackerKCF()
	case AlgorithmCSRT:
		impl = contrib.NewTrackerCSRT()
	case AlgorithmMIL:
		impl = gocv.NewTrackerMIL()
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownTracker, algorithm)
	}

	return &Tracker{name: name, impl: impl}, nil
}

//Name returns the algorithm name
func (t *Tracker) Name() string { return t.name }

//Init seeds the tracker with the first frame and the object's region
func (t *Tracker) Init(frame gocv.Mat, region image.Rectangle) error {
	if !t.impl.Init(frame, region) {
		return fmt.Errorf("%w: %s rejected region %v", ErrTrackerInit, t.name, region)
	}
	return nil
}

//Update returns the object's region on frame, false when the object was lost
func (t *Tracker) Update(frame gocv.Mat) (image.Rectangle, bool) {
	return t.impl.Update(frame)
}

//Close releases the OpenCV tracker
func (t *Tracker) Close() error {
	return t.impl.Close()
}

//ValidAlgorithm reports whether NewTracker knows the algorithm name
func ValidAlgorithm(algorithm string) bool {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case AlgorithmKCF, AlgorithmCSRT, AlgorithmMIL, "":
		return true
	}
	return false
}
