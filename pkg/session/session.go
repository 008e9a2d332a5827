// Package session drives one tracking session: it pulls frames from a source, runs the
// tracker, feeds the kinematics estimator and trail overlay, and hands composited frames
// to a sink. The package is independent of any image library; gocv bindings live in
// package video.
package session

import (
	"errors"
	"image"

	"github.com/speedtrail/speedtrail/pkg/kinematics"
)

var (
	//ErrNoFrames is returned when the source is exhausted before the first frame
	ErrNoFrames = errors.New("session: source produced no frames")
	//ErrInvalidRegion is returned when the initial region has no area
	ErrInvalidRegion = errors.New("session: initial region must have positive width and height")
	//ErrAlreadyRun is returned when Run is called on a loop that already left AwaitingInit
	ErrAlreadyRun = errors.New("session: loop already ran")
)

//Tracker is the opaque visual tracking capability. Init is called exactly once per session,
//before any Update. A false from Update means the object was lost on that frame and the
//returned region must be ignored.
type Tracker[F any] interface {
	Init(frame F, region image.Rectangle) error
	Update(frame F) (image.Rectangle, bool)
}

//Source produces frames in order. Read returns false once the sequence is exhausted.
//FPS is queried once, after the first frame was read.
type Source[F any] interface {
	Read() (F, bool)
	FPS() float64
}

//Sink consumes composited frames in the order they were produced
type Sink[F any] interface {
	Write(frame F) error
}

//RegionSelector supplies the initial region from the first frame
type RegionSelector[F any] interface {
	SelectRegion(first F) (image.Rectangle, error)
}

//SelectorFunc adapts a function to RegionSelector
type SelectorFunc[F any] func(first F) (image.Rectangle, error)

func (f SelectorFunc[F]) SelectRegion(first F) (image.Rectangle, error) { return f(first) }

//FixedRegion returns a selector that always answers r, for programmatic sessions
func FixedRegion[F any](r image.Rectangle) RegionSelector[F] {
	return SelectorFunc[F](func(F) (image.Rectangle, error) { return r, nil })
}

//Overlay is the persistent trail drawn under every output frame
type Overlay[F any] interface {
	AddSegment(from, to image.Point)
	Composite(frame F, opacity float64) (F, error)
}

//OverlayFactory builds a fresh overlay sized after the session's first frame
type OverlayFactory[F any] func(first F) (Overlay[F], error)

//Annotator draws per-frame tracking marks (box, center, speed) on a tracked frame before compositing
type Annotator[F any] interface {
	Annotate(frame F, sample Sample)
}

//Reporter receives the final summary exactly once. ok is false when no speed was ever measured.
type Reporter interface {
	Report(summary kinematics.Summary, ok bool)
}

//ReporterFunc adapts a function to Reporter
type ReporterFunc func(summary kinematics.Summary, ok bool)

func (f ReporterFunc) Report(summary kinematics.Summary, ok bool) { f(summary, ok) }

//Sample describes what happened on one frame of the Tracking state
type Sample struct {
	Frame    int
	Tracked  bool
	Region   image.Rectangle
	Center   image.Point
	Speed    float64
	HasSpeed bool
}
