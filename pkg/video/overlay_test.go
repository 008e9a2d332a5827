package video

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newBlackFrame(t *testing.T, width, height int) gocv.Mat {
	t.Helper()
	m := gocv.Zeros(height, width, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func newTestOverlay(t *testing.T, frame gocv.Mat) *TrailOverlay {
	t.Helper()
	o, err := NewTrailOverlay(frame, DefaultTrailStyle)
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })
	return o
}

func TestNewTrailOverlay_StartsEmpty(t *testing.T) {
	o := newTestOverlay(t, newBlackFrame(t, 64, 48))

	w, h := o.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Equal(t, 0, o.DrawnPixels())
}

func TestNewTrailOverlay_EmptyFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := NewTrailOverlay(empty, DefaultTrailStyle)
	assert.Error(t, err)
}

func TestTrailOverlay_AddSegmentIsCumulative(t *testing.T) {
	o := newTestOverlay(t, newBlackFrame(t, 100, 100))

	segments := [][2]image.Point{
		{image.Pt(10, 10), image.Pt(40, 10)},
		{image.Pt(40, 10), image.Pt(40, 60)},
		{image.Pt(40, 10), image.Pt(40, 60)}, // repeated on purpose
		{image.Pt(40, 60), image.Pt(90, 90)},
		{image.Pt(90, 90), image.Pt(90, 90)},
	}

	prev := 0
	for i, s := range segments {
		o.AddSegment(s[0], s[1])

		drawn := o.DrawnPixels()
		assert.GreaterOrEqual(t, drawn, prev, "segment %d shrank the trail", i)
		prev = drawn

		w, h := o.Size()
		assert.Equal(t, 100, w)
		assert.Equal(t, 100, h)
	}
	assert.Greater(t, prev, 0)
}

func TestTrailOverlay_SegmentOutsideFrame(t *testing.T) {
	o := newTestOverlay(t, newBlackFrame(t, 50, 50))

	o.AddSegment(image.Pt(-100, -100), image.Pt(-20, -40))
	assert.Equal(t, 0, o.DrawnPixels())

	o.AddSegment(image.Pt(-10, 25), image.Pt(60, 25))
	assert.Greater(t, o.DrawnPixels(), 0)
}

func TestTrailOverlay_Composite(t *testing.T) {
	frame := newBlackFrame(t, 40, 40)
	o := newTestOverlay(t, frame)
	o.AddSegment(image.Pt(0, 20), image.Pt(39, 20))

	out, err := o.Composite(frame, 0.5)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, frame.Rows(), out.Rows())
	assert.Equal(t, frame.Cols(), out.Cols())

	// BGR: the red trail lands in channel 2 at half intensity
	onLine := out.GetVecbAt(20, 10)
	assert.InDelta(t, 128, int(onLine[2]), 1)
	assert.Equal(t, uint8(0), onLine[0])

	offLine := out.GetVecbAt(5, 5)
	assert.Equal(t, gocv.Vecb{0, 0, 0}, offLine)

	// the input frame is left untouched
	assert.Equal(t, gocv.Vecb{0, 0, 0}, frame.GetVecbAt(20, 10))
}

func TestTrailOverlay_CompositeSaturates(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 250, 0), 20, 20, gocv.MatTypeCV8UC3)
	defer frame.Close()
	o := newTestOverlay(t, frame)
	o.AddSegment(image.Pt(0, 10), image.Pt(19, 10))

	out, err := o.Composite(frame, 1.0)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetVecbAt(10, 10)[2])
}

func TestTrailOverlay_CompositeMismatch(t *testing.T) {
	o := newTestOverlay(t, newBlackFrame(t, 40, 40))

	_, err := o.Composite(newBlackFrame(t, 30, 40), 0.5)
	assert.True(t, errors.Is(err, ErrFrameMismatch))

	gray := gocv.Zeros(40, 40, gocv.MatTypeCV8U)
	defer gray.Close()
	_, err = o.Composite(gray, 0.5)
	assert.True(t, errors.Is(err, ErrFrameMismatch))
}
