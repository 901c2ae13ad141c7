package vad

// Interval is a span of audio classified as speech, measured in seconds
// relative to the start of the analysed buffer.
type Interval struct {
	// Start is the interval's start offset in seconds.
	Start float64

	// End is the interval's end offset in seconds. Always >= Start.
	End float64

	// Confidence is the detector's confidence score (0.0–1.0). Backends
	// that do not report confidence use 1.0.
	Confidence float64
}
