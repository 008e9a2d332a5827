// Package jobs runs tracking sessions in the background and keeps a copy of their progress
// for the HTTP API. Each session still owns its estimator and overlay; the registry only
// stores what the session publishes through its sample hook.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/speedtrail/speedtrail/pkg/kinematics"
	"github.com/speedtrail/speedtrail/pkg/monitoring"
	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/units"
)

var (
	//ErrVideoBusy is returned by Start while another job tracks the same video
	ErrVideoBusy = errors.New("jobs: video is already being tracked")
	//ErrUnknownJob is returned for IDs the registry never issued
	ErrUnknownJob = errors.New("jobs: unknown job")
	//ErrJobFinished is returned when cancelling a job that already ended
	ErrJobFinished = errors.New("jobs: job already finished")
)

//Status of a job
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

//RunFunc performs one tracking session, video.Track in production
type RunFunc func(ctx context.Context, videoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error)

//SpeedPoint is one measured speed and the frame it was measured on
type SpeedPoint struct {
	Frame int     `json:"frame"`
	Speed float64 `json:"speed"`
}

//SummaryView is a speed summary in a given unit
type SummaryView struct {
	kinematics.Summary
	Unit string `json:"unit"`
}

//Snapshot is a copy of a job's state, safe to hand to other goroutines
type Snapshot struct {
	ID         string          `json:"id"`
	Video      string          `json:"video"`
	Region     image.Rectangle `json:"region"`
	Status     Status          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Output     string          `json:"output,omitempty"`
	Frames     int             `json:"frames"`
	Tracked    int             `json:"tracked"`
	Lost       int             `json:"lost"`
	Unit       string          `json:"unit"`
	Speeds     []SpeedPoint    `json:"speeds"`
	Summary    *SummaryView    `json:"summary"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

type job struct {
	snap      Snapshot
	cancelled atomic.Bool
	done      chan struct{}
}

//Registry keeps every job started since boot
type Registry struct {
	mu          sync.RWMutex
	jobs        map[string]*job
	run         RunFunc
	calibration units.Calibration
}

//NewRegistry returns an empty registry running sessions with run. Summaries are converted
//with calibration.
func NewRegistry(run RunFunc, calibration units.Calibration) *Registry {
	return &Registry{
		jobs:        make(map[string]*job),
		run:         run,
		calibration: calibration,
	}
}

//Start launches a tracking session for videoName in its own goroutine and returns the job ID.
//Sessions on one video share their intermediate and output files, so a second job for a video
//is refused with ErrVideoBusy while the first one runs.
func (r *Registry) Start(videoName string, region image.Rectangle) (string, error) {
	j := &job{
		snap: Snapshot{
			ID:        uuid.NewString(),
			Video:     videoName,
			Region:    region,
			Status:    StatusRunning,
			Speeds:    make([]SpeedPoint, 0),
			CreatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}

	r.mu.Lock()
	for _, other := range r.jobs {
		if other.snap.Video == videoName && other.snap.Status == StatusRunning {
			r.mu.Unlock()
			return "", fmt.Errorf("%w: '%s' is tracked by job %s", ErrVideoBusy, videoName, other.snap.ID)
		}
	}
	r.jobs[j.snap.ID] = j
	r.mu.Unlock()

	go r.execute(j)
	return j.snap.ID, nil
}

func (r *Registry) execute(j *job) {
	defer close(j.done)

	onSample := func(s session.Sample) {
		r.mu.Lock()
		defer r.mu.Unlock()
		j.snap.Frames = s.Frame
		if s.Tracked {
			j.snap.Tracked++
		} else {
			j.snap.Lost++
		}
		if s.HasSpeed {
			j.snap.Speeds = append(j.snap.Speeds, SpeedPoint{Frame: s.Frame, Speed: s.Speed})
		}
	}

	output, res, err := r.run(context.Background(), j.snap.Video, j.snap.Region, onSample, j.cancelled.Load)

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	j.snap.FinishedAt = &now
	j.snap.Output = output
	j.snap.Frames = res.Frames
	j.snap.Tracked = res.Tracked
	j.snap.Lost = res.Lost
	//a frame whose write failed is measured but never published, its speed belongs to the last frame read
	for _, speed := range res.Speeds[min(len(j.snap.Speeds), len(res.Speeds)):] {
		j.snap.Speeds = append(j.snap.Speeds, SpeedPoint{Frame: res.Frames, Speed: speed})
	}

	switch {
	case err != nil:
		j.snap.Status = StatusFailed
		j.snap.Error = err.Error()
		monitoring.Logf("jobs: Error, job '%s' on '%s' failed, got '%v'", j.snap.ID, j.snap.Video, err)
	case res.Cancelled:
		j.snap.Status = StatusCancelled
	default:
		j.snap.Status = StatusDone
	}
}

//Get returns a snapshot of the job with the given ID
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return r.snapshot(j), true
}

//List returns snapshots of all jobs, oldest first
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, r.snapshot(j))
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

//Cancel asks a running job to stop; the session notices on its next frame.
//Returns ErrUnknownJob or ErrJobFinished when there is nothing to stop.
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownJob
	}

	select {
	case <-j.done:
		return ErrJobFinished
	default:
	}
	j.cancelled.Store(true)
	return nil
}

//Done returns a channel closed when the job finished, nil for unknown IDs
func (r *Registry) Done(id string) <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if j, ok := r.jobs[id]; ok {
		return j.done
	}
	return nil
}

//Calibration returns the unit conversion applied to summaries
func (r *Registry) Calibration() units.Calibration { return r.calibration }

//snapshot copies j with speeds converted to the registry's unit; callers hold r.mu
func (r *Registry) snapshot(j *job) Snapshot {
	s := j.snap
	s.Unit = r.calibration.OutputUnit()
	s.Speeds = make([]SpeedPoint, len(j.snap.Speeds))

	values := make([]float64, len(j.snap.Speeds))
	for i, p := range j.snap.Speeds {
		values[i] = r.calibration.Convert(p.Speed)
		s.Speeds[i] = SpeedPoint{Frame: p.Frame, Speed: values[i]}
	}
	if summary, ok := kinematics.Summarize(values); ok {
		s.Summary = &SummaryView{Summary: summary, Unit: s.Unit}
	}
	return s
}
