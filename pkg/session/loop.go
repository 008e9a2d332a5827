package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/speedtrail/speedtrail/pkg/kinematics"
	"github.com/speedtrail/speedtrail/pkg/monitoring"
)

//State of a Loop
type State int

const (
	AwaitingInit State = iota
	Tracking
	Ended
)

func (s State) String() string {
	switch s {
	case AwaitingInit:
		return "awaiting-init"
	case Tracking:
		return "tracking"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

//Config wires a Loop to its collaborators. Source, Selector, Tracker, NewOverlay, Sink and
//Reporter are required.
type Config[F any] struct {
	Source     Source[F]
	Selector   RegionSelector[F]
	Tracker    Tracker[F]
	NewOverlay OverlayFactory[F]
	Sink       Sink[F]
	Reporter   Reporter

	Annotator Annotator[F]
	//OnSample is called after each emitted frame
	OnSample func(Sample)
	//Cancelled is polled once per iteration, next to ctx
	Cancelled func() bool
	//Release frees a composited frame after the sink consumed it
	Release func(F)

	Opacity   float64
	GapPolicy kinematics.GapPolicy
}

//Result is what a finished session measured
type Result struct {
	State State
	//Frames counts frames consumed after the initial frame
	Frames    int
	Emitted   int
	Tracked   int
	Lost      int
	Cancelled bool

	Summary    kinematics.Summary
	HasSummary bool
	Speeds     []float64
}

//Loop is the per-frame state machine AwaitingInit -> Tracking -> Ended.
//A Loop runs once; create a new one per session.
type Loop[F any] struct {
	cfg     Config[F]
	state   State
	est     *kinematics.Estimator
	overlay Overlay[F]
	result  Result
}

//New validates cfg and returns a Loop in AwaitingInit
func New[F any](cfg Config[F]) (*Loop[F], error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("session: missing frame source")
	case cfg.Selector == nil:
		return nil, errors.New("session: missing region selector")
	case cfg.Tracker == nil:
		return nil, errors.New("session: missing tracker")
	case cfg.NewOverlay == nil:
		return nil, errors.New("session: missing overlay factory")
	case cfg.Sink == nil:
		return nil, errors.New("session: missing sink")
	case cfg.Reporter == nil:
		return nil, errors.New("session: missing reporter")
	}

	return &Loop[F]{cfg: cfg, state: AwaitingInit}, nil
}

//State returns the current state
func (l *Loop[F]) State() State { return l.state }

//Run processes the whole session and always leaves the loop in Ended with the summary
//reported once. The returned error is non-nil only for setup failures or sink/composite
//failures; lost frames are counted, not returned.
func (l *Loop[F]) Run(ctx context.Context) (Result, error) {
	if l.state != AwaitingInit {
		return l.result, ErrAlreadyRun
	}

	if err := l.start(); err != nil {
		l.end()
		return l.result, err
	}

	var runErr error
	for {
		if l.cancelled(ctx) {
			l.result.Cancelled = true
			break
		}

		frame, ok := l.cfg.Source.Read()
		if !ok {
			break
		}
		l.result.Frames++

		if err := l.step(frame); err != nil {
			runErr = err
			break
		}
	}

	l.end()
	return l.result, runErr
}

func (l *Loop[F]) start() error {
	first, ok := l.cfg.Source.Read()
	if !ok {
		return ErrNoFrames
	}

	est, err := kinematics.NewEstimator(l.cfg.Source.FPS(), l.cfg.GapPolicy)
	if err != nil {
		return err
	}

	region, err := l.cfg.Selector.SelectRegion(first)
	if err != nil {
		return fmt.Errorf("session: select region: %w", err)
	}
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRegion, region)
	}

	if err := l.cfg.Tracker.Init(first, region); err != nil {
		return fmt.Errorf("session: init tracker: %w", err)
	}

	overlay, err := l.cfg.NewOverlay(first)
	if err != nil {
		return fmt.Errorf("session: create overlay: %w", err)
	}

	l.est = est
	l.overlay = overlay
	l.state = Tracking
	return nil
}

func (l *Loop[F]) step(frame F) error {
	sample := Sample{Frame: l.result.Frames}

	if region, ok := l.cfg.Tracker.Update(frame); ok {
		center := kinematics.CenterOf(region)
		prev, hadPrev := l.est.Last()

		sample.Tracked = true
		sample.Region = region
		sample.Center = center
		sample.Speed, sample.HasSpeed = l.est.Record(center)

		if hadPrev {
			l.overlay.AddSegment(prev, center)
		}
		if l.cfg.Annotator != nil {
			l.cfg.Annotator.Annotate(frame, sample)
		}
		l.result.Tracked++
	} else {
		l.est.Skip()
		l.result.Lost++
		monitoring.Logf("session: track lost on frame %d", sample.Frame)
	}

	out, err := l.overlay.Composite(frame, l.cfg.Opacity)
	if err != nil {
		return fmt.Errorf("session: composite frame %d: %w", sample.Frame, err)
	}

	err = l.cfg.Sink.Write(out)
	if l.cfg.Release != nil {
		l.cfg.Release(out)
	}
	if err != nil {
		return fmt.Errorf("session: write frame %d: %w", sample.Frame, err)
	}
	l.result.Emitted++

	if l.cfg.OnSample != nil {
		l.cfg.OnSample(sample)
	}
	return nil
}

func (l *Loop[F]) cancelled(ctx context.Context) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return l.cfg.Cancelled != nil && l.cfg.Cancelled()
}

//end enters Ended and reports the summary. Only the first call has any effect.
func (l *Loop[F]) end() {
	if l.state == Ended {
		return
	}
	l.state = Ended
	l.result.State = Ended

	if l.est != nil {
		l.result.Summary, l.result.HasSummary = l.est.Summary()
		l.result.Speeds = l.est.Speeds()
	}
	l.cfg.Reporter.Report(l.result.Summary, l.result.HasSummary)

	if c, ok := l.overlay.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			monitoring.Logf("session: Error closing overlay, got '%v'", err)
		}
	}
}
