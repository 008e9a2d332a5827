package units

// Calibration maps image distances to physical distances.
// A zero PixelsPerMeter means the video is uncalibrated and speeds stay in pixels per second.
type Calibration struct {
	PixelsPerMeter float64
	Unit           string
}

// Calibrated reports whether pixel speeds can be turned into physical speeds
func (c Calibration) Calibrated() bool {
	return c.PixelsPerMeter > 0 && c.Unit != PXPS && IsValid(c.Unit)
}

// OutputUnit returns the unit Convert produces
func (c Calibration) OutputUnit() string {
	if !c.Calibrated() {
		return PXPS
	}
	return c.Unit
}

// Convert turns a speed in pixels per second into the calibration's output unit
func (c Calibration) Convert(pixelsPerSecond float64) float64 {
	if !c.Calibrated() {
		return pixelsPerSecond
	}
	return ConvertSpeed(pixelsPerSecond/c.PixelsPerMeter, c.Unit)
}
