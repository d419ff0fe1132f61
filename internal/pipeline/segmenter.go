package pipeline

import (
	"sync"
	"time"

	"palaver/internal/vad"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is the segmenter's phase.
type State int

const (
	// Waiting: no speech in progress; recent audio goes to the lookback buffer.
	Waiting State = iota
	// Recording: an utterance is being accumulated.
	Recording
)

// Utterance is one finalized speech segment, handed off by move.
type Utterance struct {
	ID       uuid.UUID
	Samples  []float32
	Start    time.Time
	Duration time.Duration
}

// Segmenter turns a stream of frames into discrete utterances. It owns the
// two-state machine and both buffers; all mutation happens on the capture
// path under one mutex, so finalize-and-reset is atomic with respect to the
// next frame. The mutex is never held across transcription — emit only moves
// the buffer into the dispatch queue.
type Segmenter struct {
	gate       vad.Gate
	logger     *logrus.Logger
	emit       func(*Utterance)
	sampleRate int

	lookbackMax int // samples retained while Waiting
	maxSamples  int // forced-cutoff threshold while Recording

	mu         sync.Mutex
	state      State
	lookback   []float32
	utter      []float32
	utterStart time.Time
}

// SegmenterConfig sizes the buffers.
type SegmenterConfig struct {
	SampleRate     int
	FrameSamples   int
	LookbackFrames int
	MaxSpeechSecs  float64
}

// NewSegmenter builds a segmenter that hands finalized utterances to emit.
// emit must not block: it runs on the capture path.
func NewSegmenter(gate vad.Gate, cfg SegmenterConfig, logger *logrus.Logger, emit func(*Utterance)) *Segmenter {
	lookback := cfg.LookbackFrames * cfg.FrameSamples
	maxSamples := int(cfg.MaxSpeechSecs * float64(cfg.SampleRate))
	return &Segmenter{
		gate:        gate,
		logger:      logger,
		emit:        emit,
		sampleRate:  cfg.SampleRate,
		lookbackMax: lookback,
		maxSamples:  maxSamples,
		lookback:    make([]float32, 0, lookback),
	}
}

// ProcessFrame consumes one capture frame. Called from the audio callback;
// never blocks beyond the buffer/state mutation.
func (s *Segmenter) ProcessFrame(frame []float32) {
	s.mu.Lock()
	decision, err := s.gate.Classify(frame)
	if err != nil {
		// A bad frame must not kill capture; the gate already treated it
		// as silence.
		s.logger.Warnf("vad classify: %v", err)
	}

	var done *Utterance
	switch s.state {
	case Waiting:
		switch decision {
		case vad.Start, vad.Continue:
			// Continue while Waiting happens right after a forced cutoff:
			// the gate still sees speech, so a new utterance begins.
			s.state = Recording
			s.utterStart = time.Now()
			s.utter = append(make([]float32, 0, len(s.lookback)+len(frame)), s.lookback...)
			s.utter = append(s.utter, frame...)
			s.lookback = s.lookback[:0]
		case vad.End:
			// Spurious end while idle: no-op.
		default:
			s.lookback = append(s.lookback, frame...)
			if drop := len(s.lookback) - s.lookbackMax; drop > 0 {
				s.lookback = append(s.lookback[:0], s.lookback[drop:]...)
			}
		}

	case Recording:
		// Trailing silence is part of the utterance: the recognizer wants
		// the hangover tail.
		s.utter = append(s.utter, frame...)
		if decision == vad.End || len(s.utter) >= s.maxSamples {
			done = s.takeUtteranceLocked()
		}
	}
	s.mu.Unlock()

	if done != nil {
		s.emit(done)
	}
}

// takeUtteranceLocked moves the utterance buffer out and resets to Waiting.
func (s *Segmenter) takeUtteranceLocked() *Utterance {
	s.state = Waiting
	samples := s.utter
	s.utter = nil
	s.lookback = s.lookback[:0]
	if len(samples) == 0 {
		s.logger.Debug("empty utterance buffer at finalize; dropping")
		return nil
	}
	return &Utterance{
		ID:       uuid.New(),
		Samples:  samples,
		Start:    s.utterStart,
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(s.sampleRate),
	}
}

// Reset returns the segmenter to a fresh Waiting state, discarding any
// in-flight buffers.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Waiting
	s.utter = nil
	s.lookback = s.lookback[:0]
	s.gate.Reset()
}

// CurrentState reports the state for diagnostics and tests.
func (s *Segmenter) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
