//go:build whisper

package vad

import (
	"fmt"

	"palaver/internal/config"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// webrtcDetector wraps the WebRTC VAD as a polling Detector. The WebRTC model
// wants 16-bit PCM, so sub-frames are converted on the fly into a reused
// scratch buffer.
type webrtcDetector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
	scratch    []int16
}

func newDetector(cfg *config.Config) (Detector, error) {
	v := webrtcvad.New()
	if err := v.SetMode(cfg.VAD.Aggressiveness); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}
	sub := cfg.Audio.SampleRate * cfg.VAD.SubframeMS / 1000
	if ok := webrtcvad.ValidRateAndFrameLength(cfg.Audio.SampleRate, sub); !ok {
		return nil, fmt.Errorf("invalid subframe_ms %d for sample_rate %d", cfg.VAD.SubframeMS, cfg.Audio.SampleRate)
	}
	return &webrtcDetector{
		vad:        v,
		sampleRate: cfg.Audio.SampleRate,
		mode:       cfg.VAD.Aggressiveness,
		scratch:    make([]int16, sub),
	}, nil
}

func (d *webrtcDetector) IsSpeech(subframe []float32) (bool, error) {
	if len(subframe) > len(d.scratch) {
		d.scratch = make([]int16, len(subframe))
	}
	buf := d.scratch[:len(subframe)]
	for i, s := range subframe {
		switch {
		case s > 1:
			buf[i] = 32767
		case s < -1:
			buf[i] = -32768
		default:
			buf[i] = int16(s * 32767)
		}
	}
	return d.vad.Process(d.sampleRate, buf), nil
}

func (d *webrtcDetector) Reset() {
	// The WebRTC VAD is stateless across frames at this granularity; re-arming
	// the mode is the documented way to flush its smoothing history.
	_ = d.vad.SetMode(d.mode)
}
