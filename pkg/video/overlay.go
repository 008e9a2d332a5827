package video

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

//TrailOverlay keeps the motion trail in its own buffer, the size and type of the video frames.
//Segments are only ever added; the buffer is cleared by nothing but Close.
type TrailOverlay struct {
	buffer gocv.Mat
	style  TrailStyle
}

//NewTrailOverlay creates an all-zero trail buffer shaped like frame
func NewTrailOverlay(frame gocv.Mat, style TrailStyle) (*TrailOverlay, error) {
	if frame.Empty() {
		return nil, errors.New("NewTrailOverlay: Error, got empty frame")
	}
	if style.Thickness <= 0 {
		style.Thickness = DefaultTrailStyle.Thickness
	}

	return &TrailOverlay{
		buffer: gocv.Zeros(frame.Rows(), frame.Cols(), frame.Type()),
		style:  style,
	}, nil
}

//AddSegment draws a line between two consecutive centers. Drawing the same segment twice
//paints it twice.
func (t *TrailOverlay) AddSegment(from, to image.Point) {
	gocv.Line(&t.buffer, from, to, t.style.Color, t.style.Thickness)
}

//Composite returns a new frame = frame + opacity*trail. Values saturate at the limits of the
//pixel type (0..255 for 8-bit frames), as OpenCV's addWeighted does. The caller owns the result.
func (t *TrailOverlay) Composite(frame gocv.Mat, opacity float64) (gocv.Mat, error) {
	if frame.Rows() != t.buffer.Rows() || frame.Cols() != t.buffer.Cols() || frame.Type() != t.buffer.Type() {
		return gocv.Mat{}, fmt.Errorf("%w: frame %dx%d (%v), trail %dx%d (%v)", ErrFrameMismatch,
			frame.Cols(), frame.Rows(), frame.Type(), t.buffer.Cols(), t.buffer.Rows(), t.buffer.Type())
	}

	out := gocv.NewMat()
	gocv.AddWeighted(frame, 1.0, t.buffer, opacity, 0, &out)
	return out, nil
}

//Size returns the buffer's width and height
func (t *TrailOverlay) Size() (width, height int) {
	return t.buffer.Cols(), t.buffer.Rows()
}

//DrawnPixels counts buffer pixels touched by at least one segment
func (t *TrailOverlay) DrawnPixels() int {
	if t.buffer.Channels() == 1 {
		return gocv.CountNonZero(t.buffer)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	//any non-zero channel counts, so take the per-pixel max instead of a weighted gray
	gocv.Threshold(t.buffer, &gray, 0, 255, gocv.ThresholdBinary)
	channels := gocv.Split(gray)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	merged := channels[0].Clone()
	defer merged.Close()
	for _, c := range channels[1:] {
		gocv.BitwiseOr(merged, c, &merged)
	}
	return gocv.CountNonZero(merged)
}

//Close releases the trail buffer
func (t *TrailOverlay) Close() error {
	return t.buffer.Close()
}
