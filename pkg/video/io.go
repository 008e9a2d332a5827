package video

import (
	"fmt"
	"image"

	"github.com/speedtrail/speedtrail/pkg/kinematics"
	"github.com/speedtrail/speedtrail/pkg/monitoring"
	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/units"
	"gocv.io/x/gocv"
)

//CaptureSource reads frames from a video file. The returned Mat is reused by the next Read.
//The frame rate is read once when the file is opened.
type CaptureSource struct {
	cap   *gocv.VideoCapture
	frame gocv.Mat
	fps   float64
}

//OpenCaptureSource opens a video file for reading
func OpenCaptureSource(videoPath string) (*CaptureSource, error) {
	cap, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("OpenCaptureSource: Error opening '%s', got '%v'", videoPath, err)
	}

	return &CaptureSource{cap: cap, frame: gocv.NewMat(), fps: cap.Get(gocv.VideoCaptureFPS)}, nil
}

//Read implements session.Source
func (s *CaptureSource) Read() (gocv.Mat, bool) {
	if !s.cap.Read(&s.frame) || s.frame.Empty() {
		return gocv.Mat{}, false
	}
	return s.frame, true
}

//FPS implements session.Source
func (s *CaptureSource) FPS() float64 {
	return s.fps
}

//Size returns the video's frame width and height
func (s *CaptureSource) Size() (width, height int) {
	return int(s.cap.Get(gocv.VideoCaptureFrameWidth)), int(s.cap.Get(gocv.VideoCaptureFrameHeight))
}

//Close releases the capture and the frame buffer
func (s *CaptureSource) Close() error {
	s.frame.Close()
	return s.cap.Close()
}

//WriterSink encodes frames into a video file
type WriterSink struct {
	writer *gocv.VideoWriter
}

//CreateWriterSink opens an output video file with the given codec, fps and frame size
func CreateWriterSink(videoPath, codec string, fps float64, width, height int) (*WriterSink, error) {
	writer, err := gocv.VideoWriterFile(videoPath, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("CreateWriterSink: Error opening '%s', got '%v'", videoPath, err)
	}
	return &WriterSink{writer: writer}, nil
}

//Write implements session.Sink
func (s *WriterSink) Write(frame gocv.Mat) error {
	return s.writer.Write(frame)
}

//Close flushes and closes the output file
func (s *WriterSink) Close() error {
	return s.writer.Close()
}

//WindowSink shows each frame in a window and watches for the quit key
type WindowSink struct {
	window    *gocv.Window
	quitKey   int
	cancelled bool
}

//NewWindowSink displays frames in window; pressing quitKey requests cancellation
func NewWindowSink(window *gocv.Window, quitKey rune) *WindowSink {
	return &WindowSink{window: window, quitKey: int(quitKey)}
}

//Write implements session.Sink
func (s *WindowSink) Write(frame gocv.Mat) error {
	s.window.IMShow(frame)
	if s.window.WaitKey(1)&0xFF == s.quitKey {
		s.cancelled = true
	}
	return nil
}

//Cancelled reports whether the quit key was pressed. The loop polls it once per frame.
func (s *WindowSink) Cancelled() bool { return s.cancelled }

//MultiSink writes every frame to each sink in order and stops at the first error
type MultiSink []session.Sink[gocv.Mat]

//Write implements session.Sink
func (m MultiSink) Write(frame gocv.Mat) error {
	for _, s := range m {
		if err := s.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

//WindowSelector lets the user draw the initial region on the first frame
type WindowSelector struct {
	window *gocv.Window
}

//NewWindowSelector uses window for interactive ROI selection
func NewWindowSelector(window *gocv.Window) *WindowSelector {
	return &WindowSelector{window: window}
}

//SelectRegion implements session.RegionSelector
func (s *WindowSelector) SelectRegion(first gocv.Mat) (image.Rectangle, error) {
	r := s.window.SelectROI(first)
	if r.Empty() {
		return image.Rectangle{}, ErrSelectionCancelled
	}
	return r, nil
}

//LogReporter prints the session summary, in pixels per second and, when calibrated, in the
//configured unit
type LogReporter struct {
	Calibration units.Calibration
}

//Report implements session.Reporter
func (r LogReporter) Report(s kinematics.Summary, ok bool) {
	if !ok {
		monitoring.Logf("No speed data available")
		return
	}

	monitoring.Logf("Max speed: %.2f pixels per second", s.Max)
	monitoring.Logf("Min speed: %.2f pixels per second", s.Min)
	monitoring.Logf("Avg speed: %.2f pixels per second", s.Avg)

	if r.Calibration.Calibrated() {
		label := units.Label(r.Calibration.OutputUnit())
		monitoring.Logf("Max speed: %.2f %s", r.Calibration.Convert(s.Max), label)
		monitoring.Logf("Min speed: %.2f %s", r.Calibration.Convert(s.Min), label)
		monitoring.Logf("Avg speed: %.2f %s", r.Calibration.Convert(s.Avg), label)
	}
}
