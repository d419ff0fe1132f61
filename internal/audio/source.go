// Package audio provides microphone frame sources and WAV helpers.
//
// A Source pushes fixed-size frames of mono float32 samples to a callback.
// The callback runs on the capture thread and must not block; anything slow
// belongs on the other side of a channel or queue.
package audio

import (
	"palaver/internal/config"
)

// Source delivers audio frames via callback.
type Source interface {
	// Open starts capture and invokes cb once per frame until Close.
	// cb receives a frame that is only valid for the duration of the call;
	// implementations may reuse the backing array.
	Open(cb func(frame []float32)) error

	// Pause suspends callback delivery without tearing the stream down.
	// Used while the assistant plays back its own voice.
	Pause() error

	// Resume restarts callback delivery after Pause.
	Resume() error

	// Close stops capture. Safe to call more than once.
	Close() error
}

// NewSource returns the platform microphone source.
func NewSource(cfg *config.Config) (Source, error) {
	return newMicSource(cfg)
}
