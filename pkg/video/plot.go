package video

import (
	"fmt"
	"image"
	"image/color"

	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/units"
	"gocv.io/x/gocv"
)

var trackedObjectColor = color.RGBA{0, 255, 0, 0}
var whiteRGB = color.RGBA{255, 255, 255, 0}

//Annotator plots the tracked region, its center and the current speed on each tracked frame
type Annotator struct {
	Calibration units.Calibration
	//ShowSpeed writes the last measured speed above the bounding box
	ShowSpeed bool

	lastSpeed    float64
	hasLastSpeed bool
}

//Annotate implements session.Annotator
func (a *Annotator) Annotate(frame gocv.Mat, sample session.Sample) {
	if sample.HasSpeed {
		a.lastSpeed = sample.Speed
		a.hasLastSpeed = true
	}

	plotRegionOnFrame(&frame, sample.Region, sample.Center)

	if a.ShowSpeed && a.hasLastSpeed {
		plotSpeedLabel(&frame, sample.Region, a.Calibration.Convert(a.lastSpeed), a.Calibration.OutputUnit())
	}
}

//plotRegionOnFrame plots given bounding box and a filled dot on its center
func plotRegionOnFrame(frame *gocv.Mat, region image.Rectangle, center image.Point) {
	gocv.Rectangle(frame, region, trackedObjectColor, 2)
	gocv.Circle(frame, center, 4, trackedObjectColor, -1) //thickness -1 == filled circle
}

//plotSpeedLabel writes speed on a filled background right above the bounding box
func plotSpeedLabel(frame *gocv.Mat, region image.Rectangle, speed float64, unit string) {
	text := fmt.Sprintf("%.1f %s", speed, unit)
	textSize := gocv.GetTextSize(text, gocv.FontHersheyPlain, 1, 2)

	startPoint := image.Pt(region.Min.X, region.Min.Y-5)
	textBackgroundRect := image.Rect(startPoint.X, startPoint.Y-textSize.Y-5, startPoint.X+textSize.X+4, startPoint.Y+3)

	gocv.Rectangle(frame, textBackgroundRect, trackedObjectColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, text, image.Pt(startPoint.X+2, startPoint.Y), gocv.FontHersheyPlain, 1, whiteRGB, 2)
}
