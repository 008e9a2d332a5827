// Package kinematics turns a sequence of tracked centers into a speed series.
//
// Speeds are in position units (pixels) per second. The frame interval is fixed for a
// session and comes from the source's frame rate.
package kinematics

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//ErrInvalidFrameRate is returned when the frame rate can't produce a positive frame interval
var ErrInvalidFrameRate = errors.New("kinematics: frame rate must be a positive finite number")

//GapPolicy decides how speed is computed across frames where tracking was lost
type GapPolicy int

const (
	//GapBridge differences the last two recorded centers as if they were one frame apart.
	//This understates speed when frames were skipped in between.
	GapBridge GapPolicy = iota
	//GapScale divides by the real number of frames elapsed between the two centers
	GapScale
	//GapExclude produces no speed for a pair of centers separated by a lost frame
	GapExclude
)

var gapPolicyNames = map[GapPolicy]string{
	GapBridge:  "bridge",
	GapScale:   "scale",
	GapExclude: "exclude",
}

func (p GapPolicy) String() string {
	if name, ok := gapPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("GapPolicy(%d)", int(p))
}

//ParseGapPolicy maps a config value to a GapPolicy. Empty string means GapBridge.
func ParseGapPolicy(s string) (GapPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return GapBridge, nil
	}
	for p, name := range gapPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return GapBridge, fmt.Errorf("kinematics: unknown gap policy '%s' (valid: bridge, scale, exclude)", s)
}

//Summary holds aggregate statistics over a speed series
type Summary struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
}

//CenterOf returns the geometric center of r, truncating to integer coordinates
func CenterOf(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

//Distance is the Euclidean distance between two centers
func Distance(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

//Estimator accumulates the position history of one tracked object and the speeds between
//consecutive samples. It is not safe for concurrent use; a session owns exactly one.
type Estimator struct {
	frameInterval float64
	policy        GapPolicy

	history []image.Point
	speeds  []float64

	//frames skipped since the last recorded center
	skipped int
}

//NewEstimator returns an empty Estimator for a source running at fps frames per second
func NewEstimator(fps float64, policy GapPolicy) (*Estimator, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFrameRate, fps)
	}

	return &Estimator{
		frameInterval: 1 / fps,
		policy:        policy,
		history:       make([]image.Point, 0),
		speeds:        make([]float64, 0),
	}, nil
}

//Record appends center to the history. When a previous center exists it returns the speed
//between the two and true; the first center (or an excluded gap) returns false.
func (e *Estimator) Record(center image.Point) (float64, bool) {
	e.history = append(e.history, center)

	skipped := e.skipped
	e.skipped = 0

	if len(e.history) < 2 {
		return 0, false
	}

	interval := e.frameInterval
	switch e.policy {
	case GapScale:
		interval *= float64(skipped + 1)
	case GapExclude:
		if skipped > 0 {
			return 0, false
		}
	}

	speed := Distance(e.history[len(e.history)-2], center) / interval
	e.speeds = append(e.speeds, speed)
	return speed, true
}

//Skip notes a frame on which no center could be recorded.
//Before the first recorded center there is nothing to bridge and Skip does nothing.
func (e *Estimator) Skip() {
	if len(e.history) > 0 {
		e.skipped++
	}
}

//Summary returns max, min and mean over the recorded speeds, false when there are none
func (e *Estimator) Summary() (Summary, bool) {
	return Summarize(e.speeds)
}

//Summarize computes Summary over any speed series
func Summarize(speeds []float64) (Summary, bool) {
	if len(speeds) == 0 {
		return Summary{}, false
	}

	s := Summary{
		Max: floats.Max(speeds),
		Min: floats.Min(speeds),
		Avg: stat.Mean(speeds, nil),
	}
	//float summation can land the mean a few ulps outside [min, max]
	s.Avg = math.Max(s.Min, math.Min(s.Max, s.Avg))
	return s, true
}

//Centers returns a copy of the position history
func (e *Estimator) Centers() []image.Point {
	out := make([]image.Point, len(e.history))
	copy(out, e.history)
	return out
}

//Speeds returns a copy of the speed series
func (e *Estimator) Speeds() []float64 {
	out := make([]float64, len(e.speeds))
	copy(out, e.speeds)
	return out
}

//Last returns the most recently recorded center
func (e *Estimator) Last() (image.Point, bool) {
	if len(e.history) == 0 {
		return image.Point{}, false
	}
	return e.history[len(e.history)-1], true
}

//Len is the number of recorded centers
func (e *Estimator) Len() int { return len(e.history) }

//FrameInterval is the time between two frames in seconds
func (e *Estimator) FrameInterval() float64 { return e.frameInterval }

//Policy returns the gap policy the estimator was built with
func (e *Estimator) Policy() GapPolicy { return e.policy }
