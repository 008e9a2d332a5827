package video

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/speedtrail/speedtrail/pkg/monitoring"
	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/utils"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

//Job describes one tracking run over a video file
type Job struct {
	InputPath  string
	OutputPath string
	Selector   session.RegionSelector[gocv.Mat]
	Options    Options

	//Window, when set, shows each output frame; 'q' cancels the run
	Window *gocv.Window
	//Reporter defaults to LogReporter
	Reporter  session.Reporter
	OnSample  func(session.Sample)
	Cancelled func() bool
}

//Process tracks the selected object through job.InputPath and writes the annotated video,
//with its motion trail, to job.OutputPath at the source's frame rate and size.
func Process(ctx context.Context, job Job) (session.Result, error) {
	src, err := OpenCaptureSource(job.InputPath)
	if err != nil {
		return session.Result{}, err
	}
	defer src.Close()

	width, height := src.Size()
	writer, err := CreateWriterSink(job.OutputPath, job.Options.Codec, src.FPS(), width, height)
	if err != nil {
		return session.Result{}, err
	}
	defer writer.Close()

	tracker, err := NewTracker(job.Options.Algorithm)
	if err != nil {
		return session.Result{}, err
	}
	defer tracker.Close()

	var sink session.Sink[gocv.Mat] = writer
	cancelled := job.Cancelled
	if job.Window != nil {
		windowSink := NewWindowSink(job.Window, utils.QuitKey)
		sink = MultiSink{windowSink, writer}
		cancelled = anyCancelled(job.Cancelled, windowSink.Cancelled)
	}

	reporter := job.Reporter
	if reporter == nil {
		reporter = LogReporter{Calibration: job.Options.Calibration}
	}

	style := job.Options.Trail
	loop, err := session.New(session.Config[gocv.Mat]{
		Source:   src,
		Selector: job.Selector,
		Tracker:  tracker,
		NewOverlay: func(first gocv.Mat) (session.Overlay[gocv.Mat], error) {
			overlay, err := NewTrailOverlay(first, style)
			if err != nil {
				return nil, err
			}
			return overlay, nil
		},
		Sink:      sink,
		Reporter:  reporter,
		Annotator: &Annotator{Calibration: job.Options.Calibration, ShowSpeed: true},
		OnSample:  job.OnSample,
		Cancelled: cancelled,
		Release:   func(m gocv.Mat) { m.Close() },
		Opacity:   job.Options.Opacity,
		GapPolicy: job.Options.GapPolicy,
	})
	if err != nil {
		return session.Result{}, err
	}

	monitoring.Logf("Process: tracking '%s' with %s, output '%s'", job.InputPath, tracker.Name(), job.OutputPath)
	res, err := loop.Run(ctx)
	monitoring.Logf("Process: '%s' done, %d frames, %d tracked, %d lost", job.InputPath, res.Frames, res.Tracked, res.Lost)
	return res, err
}

func anyCancelled(polls ...func() bool) func() bool {
	return func() bool {
		for _, p := range polls {
			if p != nil && p() {
				return true
			}
		}
		return false
	}
}

//Track reads a video from the source directory, tracks the object inside region and saves the
//result in the 'ready' directory from configuration file, as '<name>.<video.prod_format>'.
//srcVideoName should include file's extension ('.mp4', etc.). Returns the output video path.
func Track(ctx context.Context, srcVideoName string, region image.Rectangle, onSample func(session.Sample), cancelled func() bool) (string, session.Result, error) {
	opts, err := OptionsFromConfig()
	if err != nil {
		return "", session.Result{}, err
	}

	baseName := strings.TrimSuffix(srcVideoName, path.Ext(srcVideoName))
	srcVideoPath := path.Join(viper.GetString("directory.source"), srcVideoName)
	tmpVideoPath := path.Join(viper.GetString("directory.temp"), baseName+".avi")
	outputVideoPath := ReadyVideoPath(baseName)

	defer os.Remove(tmpVideoPath) //remove '.avi' temp file at the end of this function

	res, err := Process(ctx, Job{
		InputPath:  srcVideoPath,
		OutputPath: tmpVideoPath,
		Selector:   session.FixedRegion[gocv.Mat](region),
		Options:    opts,
		OnSample:   onSample,
		Cancelled:  cancelled,
	})
	if err != nil {
		return "", res, err
	}

	if err := convertVideo(tmpVideoPath, outputVideoPath); err != nil {
		return "", res, err
	}
	return outputVideoPath, res, nil
}

//ReadyVideoPath is where Track stores the output for a source video's base name
func ReadyVideoPath(baseName string) string {
	return path.Join(viper.GetString("directory.ready"), baseName+"."+viper.GetString("video.prod_format"))
}

//convertVideo converts the intermediate 'avi' to the production format. example: ffmpeg -i lift.avi lift.mp4
func convertVideo(src, dst string) error {
	if path.Ext(src) == path.Ext(dst) {
		return os.Rename(src, dst)
	}

	cmd := exec.Command("ffmpeg", "-y", "-loglevel", "error", "-i", src, dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("convertVideo: Error from ffmpeg, got '%v': %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
