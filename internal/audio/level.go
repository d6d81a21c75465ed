package audio

import "math"

const (
	levelFloorDB = -60.0
	levelCeilDB  = 0.0
)

// Level computes the RMS input level of normalized samples in decibels,
// linearly mapped onto [0,1] over a -60 dB to 0 dB window.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return 0
	}

	db := 20 * math.Log10(rms)
	normalized := (db - levelFloorDB) / (levelCeilDB - levelFloorDB)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}
