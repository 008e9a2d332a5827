package jobs

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/speedtrail/speedtrail/pkg/monitoring"
	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//scriptedRun publishes the given samples and returns like a finished session
func scriptedRun(samples []session.Sample, err error) RunFunc {
	return func(ctx context.Context, videoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error) {
		res := session.Result{State: session.Ended}
		for _, s := range samples {
			if cancelled() {
				res.Cancelled = true
				break
			}
			onSample(s)
			res.Frames = s.Frame
			if s.Tracked {
				res.Tracked++
			} else {
				res.Lost++
			}
		}
		if err != nil {
			return "", res, err
		}
		return "ready/" + videoName, res, nil
	}
}

func mustStart(t *testing.T, r *Registry, videoName string, region image.Rectangle) string {
	t.Helper()
	id, err := r.Start(videoName, region)
	require.NoError(t, err)
	return id
}

func waitDone(t *testing.T, r *Registry, id string) Snapshot {
	t.Helper()
	select {
	case <-r.Done(id):
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish", id)
	}
	snap, ok := r.Get(id)
	require.True(t, ok)
	return snap
}

func TestRegistry_RunToCompletion(t *testing.T) {
	samples := []session.Sample{
		{Frame: 1, Tracked: true},
		{Frame: 2, Tracked: true, Speed: 10, HasSpeed: true},
		{Frame: 3},
		{Frame: 4, Tracked: true, Speed: 0, HasSpeed: true},
	}
	r := NewRegistry(scriptedRun(samples, nil), units.Calibration{})

	id, err := r.Start("lift.mp4", image.Rect(1, 2, 3, 4))
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	snap := waitDone(t, r, id)
	assert.Equal(t, StatusDone, snap.Status)
	assert.Equal(t, "ready/lift.mp4", snap.Output)
	assert.Equal(t, image.Rect(1, 2, 3, 4), snap.Region)
	assert.Equal(t, 4, snap.Frames)
	assert.Equal(t, 3, snap.Tracked)
	assert.Equal(t, 1, snap.Lost)
	assert.Equal(t, units.PXPS, snap.Unit)
	assert.Equal(t, []SpeedPoint{{Frame: 2, Speed: 10}, {Frame: 4, Speed: 0}}, snap.Speeds)
	require.NotNil(t, snap.Summary)
	assert.InDelta(t, 10, snap.Summary.Max, 1e-9)
	assert.InDelta(t, 0, snap.Summary.Min, 1e-9)
	assert.InDelta(t, 5, snap.Summary.Avg, 1e-9)
	assert.NotNil(t, snap.FinishedAt)
}

func TestRegistry_CalibratedSummary(t *testing.T) {
	samples := []session.Sample{
		{Frame: 1, Tracked: true},
		{Frame: 2, Tracked: true, Speed: 200, HasSpeed: true},
	}
	r := NewRegistry(scriptedRun(samples, nil), units.Calibration{PixelsPerMeter: 100, Unit: units.MPS})

	snap := waitDone(t, r, mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5)))
	assert.Equal(t, units.MPS, snap.Unit)
	require.NotNil(t, snap.Summary)
	assert.InDelta(t, 2.0, snap.Summary.Max, 1e-9)
	assert.Equal(t, units.MPS, snap.Summary.Unit)
	assert.InDelta(t, 2.0, snap.Speeds[0].Speed, 1e-9)
}

func TestRegistry_NoSpeeds(t *testing.T) {
	r := NewRegistry(scriptedRun([]session.Sample{{Frame: 1, Tracked: true}}, nil), units.Calibration{})

	snap := waitDone(t, r, mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5)))
	assert.Nil(t, snap.Summary)
	assert.Empty(t, snap.Speeds)
}

func TestRegistry_Failure(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	r := NewRegistry(scriptedRun(nil, errors.New("cannot open video")), units.Calibration{})

	snap := waitDone(t, r, mustStart(t, r, "missing.mp4", image.Rect(0, 0, 5, 5)))
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "cannot open video", snap.Error)
	assert.Empty(t, snap.Output)
}

func TestRegistry_Cancel(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, videoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error) {
		<-release
		return "", session.Result{State: session.Ended, Cancelled: cancelled()}, nil
	}
	r := NewRegistry(run, units.Calibration{})

	id := mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5))
	snap, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusRunning, snap.Status)

	assert.NoError(t, r.Cancel(id))
	assert.ErrorIs(t, r.Cancel("unknown"), ErrUnknownJob)
	close(release)

	snap = waitDone(t, r, id)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.ErrorIs(t, r.Cancel(id), ErrJobFinished)
}

func TestRegistry_OneRunningJobPerVideo(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	run := func(ctx context.Context, videoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error) {
		runs.Add(1)
		<-release
		return "ready/" + videoName, session.Result{State: session.Ended}, nil
	}
	r := NewRegistry(run, units.Calibration{})

	first := mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5))
	_, err := r.Start("lift.mp4", image.Rect(1, 1, 5, 5))
	assert.ErrorIs(t, err, ErrVideoBusy)

	other := mustStart(t, r, "run.mp4", image.Rect(0, 0, 5, 5))
	close(release)
	waitDone(t, r, first)
	waitDone(t, r, other)
	assert.Len(t, r.List(), 2)

	//the video is free again once its job ended
	again := mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5))
	waitDone(t, r, again)
	assert.Equal(t, int32(3), runs.Load())
}

func TestRegistry_GetUnknownAndList(t *testing.T) {
	r := NewRegistry(scriptedRun(nil, nil), units.Calibration{})

	_, ok := r.Get("nope")
	assert.False(t, ok)
	assert.Nil(t, r.Done("nope"))
	assert.Empty(t, r.List())

	first := mustStart(t, r, "a.mp4", image.Rect(0, 0, 5, 5))
	second := mustStart(t, r, "b.mp4", image.Rect(0, 0, 5, 5))
	waitDone(t, r, first)
	waitDone(t, r, second)

	list := r.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
}

func TestSnapshotIsACopy(t *testing.T) {
	samples := []session.Sample{
		{Frame: 1, Tracked: true},
		{Frame: 2, Tracked: true, Speed: 7, HasSpeed: true},
	}
	r := NewRegistry(scriptedRun(samples, nil), units.Calibration{})
	id := mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5))
	snap := waitDone(t, r, id)

	snap.Speeds[0].Speed = 1000
	again, _ := r.Get(id)
	assert.InDelta(t, 7, again.Speeds[0].Speed, 1e-9)
}

func TestWriteSpeedPNG(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteSpeedPNG(&buf, Snapshot{}), ErrNoSpeeds)

	summary := &SummaryView{Unit: units.PXPS}
	summary.Max, summary.Min, summary.Avg = 10, 0, 5
	snap := Snapshot{
		Video:   "lift.mp4",
		Unit:    units.PXPS,
		Speeds:  []SpeedPoint{{Frame: 2, Speed: 10}, {Frame: 3, Speed: 0}},
		Summary: summary,
	}
	require.NoError(t, WriteSpeedPNG(&buf, snap))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteSpeedHTML(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteSpeedHTML(&buf, Snapshot{}), ErrNoSpeeds)

	snap := Snapshot{
		ID:     "job-1",
		Video:  "lift.mp4",
		Unit:   units.PXPS,
		Speeds: []SpeedPoint{{Frame: 2, Speed: 10}, {Frame: 3, Speed: 0}},
	}
	require.NoError(t, WriteSpeedHTML(&buf, snap))
	assert.Contains(t, buf.String(), "echarts")
	assert.Contains(t, buf.String(), "lift.mp4")
}

func TestRegistry_FailedWriteKeepsMeasuredSpeed(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	//the session measured frame 3 but could not write it, so only frames 1 and 2 were published
	run := func(ctx context.Context, videoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error) {
		onSample(session.Sample{Frame: 1, Tracked: true})
		onSample(session.Sample{Frame: 2, Tracked: true, Speed: 10, HasSpeed: true})
		return "", session.Result{State: session.Ended, Frames: 3, Emitted: 2, Tracked: 3, Speeds: []float64{10, 10}}, errors.New("disk full")
	}
	r := NewRegistry(run, units.Calibration{})

	snap := waitDone(t, r, mustStart(t, r, "lift.mp4", image.Rect(0, 0, 5, 5)))
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, []SpeedPoint{{Frame: 2, Speed: 10}, {Frame: 3, Speed: 10}}, snap.Speeds)
	require.NotNil(t, snap.Summary)
	assert.InDelta(t, 10, snap.Summary.Avg, 1e-9)
}
