// Command track follows one object through a video file and writes a copy with its motion trail.
//
//	track -i lift.mp4 -o lift_tracked.avi
//
// With display enabled the first frame is shown to draw the object's region, and 'q' stops early.
// Without a display the region comes from --x, --y, --width and --height.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/speedtrail/speedtrail/pkg/session"
	"github.com/speedtrail/speedtrail/pkg/utils"
	"github.com/speedtrail/speedtrail/pkg/video"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	video.SetDefaults()

	input := flag.StringP("input", "i", "", "input video path")
	output := flag.StringP("output", "o", "", "output video path (default '<input>_tracked.avi')")
	configPath := flag.StringP("config", "c", "", "optional config file")
	x := flag.String("x", "", "region left edge, used when display is disabled")
	y := flag.String("y", "", "region top edge")
	w := flag.String("width", "", "region width")
	h := flag.String("height", "", "region height")
	flag.Bool("display", true, "show frames and select the region interactively")
	flag.String("algorithm", video.AlgorithmKCF, "tracking algorithm: kcf, csrt or mil")
	flag.String("gap-policy", "bridge", "speed across lost frames: bridge, scale or exclude")
	flag.Float64("opacity", 0.5, "trail opacity")
	flag.Float64("pixels-per-meter", 0, "calibration, 0 keeps speeds in pixels per second")
	flag.String("unit", "mps", "speed unit when calibrated")
	flag.Parse()

	if *configPath != "" {
		viper.SetConfigFile(*configPath)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Error: Could not read config file, got '%v'", err)
		}
	}

	//flags win over the config file only when given
	for key, name := range map[string]string{
		"display.enabled":           "display",
		"tracking.algorithm":        "algorithm",
		"tracking.gap_policy":       "gap-policy",
		"tracking.trail_opacity":    "opacity",
		"tracking.pixels_per_meter": "pixels-per-meter",
		"tracking.speed_unit":       "unit",
	} {
		if err := viper.BindPFlag(key, flag.Lookup(name)); err != nil {
			log.Fatalf("Error: %v", err)
		}
	}

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *output == "" {
		*output = strings.TrimSuffix(*input, path.Ext(*input)) + "_tracked.avi"
	}

	opts, err := video.OptionsFromConfig()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	job := video.Job{
		InputPath:  *input,
		OutputPath: *output,
		Options:    opts,
	}

	if viper.GetBool("display.enabled") {
		window := gocv.NewWindow(utils.WindowName)
		defer window.Close()
		job.Window = window
		job.Selector = video.NewWindowSelector(window)
	} else {
		region, err := utils.ParseRegion(*x, *y, *w, *h)
		if err != nil {
			log.Fatalf("Error: display is disabled, a region is required: %v", err)
		}
		job.Selector = session.FixedRegion[gocv.Mat](region)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := video.Process(ctx, job)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if res.Cancelled {
		log.Printf("Stopped after %d frames", res.Frames)
	}
	log.Printf("Output video saved to '%s'", *output)
}
