package video

import (
	"fmt"
	"strings"

	"github.com/speedtrail/speedtrail/pkg/kinematics"
	"github.com/speedtrail/speedtrail/pkg/units"
	"github.com/spf13/viper"
)

//SetDefaults registers default values for every key the tracker reads
func SetDefaults() {
	viper.SetDefault("directory.root", "./data")
	viper.SetDefault("directory.source", "./data/source")
	viper.SetDefault("directory.ready", "./data/ready")
	viper.SetDefault("directory.temp", "./data/temp")
	viper.SetDefault("video.prod_format", "mp4")
	viper.SetDefault("video.codec", "XVID")
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("tracking.algorithm", AlgorithmKCF)
	viper.SetDefault("tracking.gap_policy", kinematics.GapBridge.String())
	viper.SetDefault("tracking.trail_opacity", 0.5)
	viper.SetDefault("tracking.trail_thickness", DefaultTrailStyle.Thickness)
	viper.SetDefault("tracking.pixels_per_meter", 0.0)
	viper.SetDefault("tracking.speed_unit", units.MPS)
	viper.SetDefault("display.enabled", true)
}

//OptionsFromConfig builds Options from viper, falling back to DefaultOptions for unset keys
func OptionsFromConfig() (Options, error) {
	opts := DefaultOptions()

	if v := viper.GetString("tracking.algorithm"); v != "" {
		if !ValidAlgorithm(v) {
			return opts, fmt.Errorf("OptionsFromConfig: %w: '%s'", ErrUnknownTracker, v)
		}
		opts.Algorithm = strings.ToLower(strings.TrimSpace(v))
	}

	policy, err := kinematics.ParseGapPolicy(viper.GetString("tracking.gap_policy"))
	if err != nil {
		return opts, fmt.Errorf("OptionsFromConfig: %w", err)
	}
	opts.GapPolicy = policy

	if viper.IsSet("tracking.trail_opacity") {
		opts.Opacity = viper.GetFloat64("tracking.trail_opacity")
		if opts.Opacity < 0 {
			return opts, fmt.Errorf("OptionsFromConfig: tracking.trail_opacity must not be negative, got %v", opts.Opacity)
		}
	}

	if viper.IsSet("tracking.trail_thickness") {
		opts.Trail.Thickness = viper.GetInt("tracking.trail_thickness")
		if opts.Trail.Thickness <= 0 {
			return opts, fmt.Errorf("OptionsFromConfig: tracking.trail_thickness must be positive, got %d", opts.Trail.Thickness)
		}
	}

	if v := viper.GetString("video.codec"); v != "" {
		if len(v) != 4 {
			return opts, fmt.Errorf("OptionsFromConfig: video.codec must be a fourcc, got '%s'", v)
		}
		opts.Codec = v
	}

	ppm := viper.GetFloat64("tracking.pixels_per_meter")
	if ppm < 0 {
		return opts, fmt.Errorf("OptionsFromConfig: tracking.pixels_per_meter must not be negative, got %v", ppm)
	}
	unit := viper.GetString("tracking.speed_unit")
	if unit == "" {
		unit = units.PXPS
	}
	if !units.IsValid(unit) {
		return opts, fmt.Errorf("OptionsFromConfig: invalid tracking.speed_unit '%s', valid: %s", unit, units.GetValidUnitsString())
	}
	opts.Calibration = units.Calibration{PixelsPerMeter: ppm, Unit: unit}

	return opts, nil
}
