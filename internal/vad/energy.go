package vad

// MeanAbs returns the mean absolute amplitude of samples. Used as a secondary
// gate: segments that passed the detector but are too quiet are not worth
// sending to the recognizer.
func MeanAbs(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(samples))
}
