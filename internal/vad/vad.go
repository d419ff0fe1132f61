// Package vad classifies audio frames as speech or silence.
//
// Two kinds of backends exist: event-driven gates that track their own
// hysteresis and emit Start/End transitions, and polling detectors that only
// answer "is this sub-frame speech?". A polling detector is lifted to a Gate
// with the Hangover adapter, which owns the silence-timeout counter.
package vad

import "palaver/internal/config"

// Decision is the per-frame verdict of a Gate.
type Decision int

const (
	// None: no speech in this frame and no segment in progress.
	None Decision = iota
	// Start: speech began in this frame.
	Start
	// Continue: a segment is in progress (speech or intra-segment silence).
	Continue
	// End: the silence timeout elapsed; the segment is finished.
	End
)

func (d Decision) String() string {
	switch d {
	case Start:
		return "start"
	case Continue:
		return "continue"
	case End:
		return "end"
	default:
		return "none"
	}
}

// Gate classifies whole capture frames and reports segment transitions.
// Classify runs on the capture path and must not block.
type Gate interface {
	Classify(frame []float32) (Decision, error)
	Reset()
}

// Detector answers speech/non-speech for one fixed-duration sub-frame.
type Detector interface {
	// IsSpeech reports whether the sub-frame contains speech. The sub-frame
	// length is fixed per session (config.VAD.SubframeMS worth of samples).
	IsSpeech(subframe []float32) (bool, error)
	Reset()
}

// NewGate builds the production gate: the platform detector wrapped in a
// Hangover adapter configured from cfg.
func NewGate(cfg *config.Config) (Gate, error) {
	det, err := newDetector(cfg)
	if err != nil {
		return nil, err
	}
	return NewHangover(det, HangoverConfig{
		SampleRate: cfg.Audio.SampleRate,
		SubframeMS: cfg.VAD.SubframeMS,
		SilenceMS:  cfg.VAD.SilenceMS,
	}), nil
}
