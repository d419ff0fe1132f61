package vad

// HangoverConfig sizes the polling-to-event adapter.
type HangoverConfig struct {
	SampleRate int
	SubframeMS int
	SilenceMS  int
}

// Hangover lifts a polling Detector to an event Gate. It slices incoming
// frames into fixed sub-frames, carries the remainder between calls, and
// declares End after ceil(SilenceMS/SubframeMS) consecutive silent sub-frames.
type Hangover struct {
	det        Detector
	subSamples int
	maxSilence int

	pending  []float32
	inSpeech bool
	silence  int
	lastErr  error
}

// NewHangover wraps det with a silence-timeout counter.
func NewHangover(det Detector, cfg HangoverConfig) *Hangover {
	sub := cfg.SampleRate * cfg.SubframeMS / 1000
	maxSilence := (cfg.SilenceMS + cfg.SubframeMS - 1) / cfg.SubframeMS
	if maxSilence < 1 {
		maxSilence = 1
	}
	return &Hangover{
		det:        det,
		subSamples: sub,
		maxSilence: maxSilence,
	}
}

// Classify consumes one capture frame and reports the segment transition it
// caused, if any. A detector error counts the sub-frame as silence; the error
// is surfaced alongside the decision so the caller can log it.
func (h *Hangover) Classify(frame []float32) (Decision, error) {
	h.lastErr = nil
	h.pending = append(h.pending, frame...)

	started := false
	ended := false

	for len(h.pending) >= h.subSamples {
		sub := h.pending[:h.subSamples]
		h.pending = h.pending[h.subSamples:]

		speech, err := h.det.IsSpeech(sub)
		if err != nil {
			h.lastErr = err
			speech = false
		}

		if speech {
			h.silence = 0
			if !h.inSpeech {
				h.inSpeech = true
				started = true
			}
			continue
		}
		if h.inSpeech {
			h.silence++
			if h.silence >= h.maxSilence {
				h.inSpeech = false
				h.silence = 0
				ended = true
			}
		}
	}

	switch {
	case started && ended:
		// Whole segment inside one frame; treat it as a start, the end will
		// surface on the next frame's silence.
		h.inSpeech = true
		return Start, h.lastErr
	case started:
		return Start, h.lastErr
	case ended:
		return End, h.lastErr
	case h.inSpeech:
		return Continue, h.lastErr
	default:
		return None, h.lastErr
	}
}

// Reset clears the carry buffer and the silence counter.
func (h *Hangover) Reset() {
	h.pending = h.pending[:0]
	h.inSpeech = false
	h.silence = 0
	h.det.Reset()
}
