package jobs

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/speedtrail/speedtrail/pkg/units"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//ErrNoSpeeds is returned when a chart is requested for a job without any measured speed
var ErrNoSpeeds = errors.New("jobs: no speed data available")

//WriteSpeedPNG renders the job's speed series as a PNG line plot
func WriteSpeedPNG(w io.Writer, snap Snapshot) error {
	if len(snap.Speeds) == 0 {
		return ErrNoSpeeds
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Speed - %s", snap.Video)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = fmt.Sprintf("Speed (%s)", units.Label(snap.Unit))
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(snap.Speeds))
	for _, s := range snap.Speeds {
		pts = append(pts, plotter.XY{X: float64(s.Frame), Y: s.Speed})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("WriteSpeedPNG: creating line, got '%v'", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if snap.Summary != nil {
		avg, err := plotter.NewLine(plotter.XYs{
			{X: pts[0].X, Y: snap.Summary.Avg},
			{X: pts[len(pts)-1].X, Y: snap.Summary.Avg},
		})
		if err == nil {
			avg.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(avg)
			p.Legend.Add("speed", line)
			p.Legend.Add("average", avg)
		}
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("WriteSpeedPNG: got '%v'", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

//WriteSpeedHTML renders the job's speed series as an interactive go-echarts page
func WriteSpeedHTML(w io.Writer, snap Snapshot) error {
	if len(snap.Speeds) == 0 {
		return ErrNoSpeeds
	}

	frames := make([]int, 0, len(snap.Speeds))
	data := make([]opts.LineData, 0, len(snap.Speeds))
	for _, s := range snap.Speeds {
		frames = append(frames, s.Frame)
		data = append(data, opts.LineData{Value: s.Speed})
	}

	subtitle := fmt.Sprintf("job=%s frames=%d tracked=%d lost=%d", snap.ID, snap.Frames, snap.Tracked, snap.Lost)
	if snap.Summary != nil {
		subtitle += fmt.Sprintf(" max=%.2f min=%.2f avg=%.2f", snap.Summary.Max, snap.Summary.Min, snap.Summary.Avg)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Speed", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: snap.Video, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: snap.Unit, NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(frames).AddSeries("speed", data)

	return line.Render(w)
}
