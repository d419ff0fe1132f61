// Package stt converts finalized utterance audio into text.
package stt

import (
	"context"

	"palaver/internal/config"

	"github.com/sirupsen/logrus"
)

// Transcriber turns a finite sample sequence into text. Implementations may
// be slow and may fail; callers treat failures as a dropped utterance, never
// as fatal.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	Close() error
}

// NewTranscriber returns the whisper.cpp transcriber.
func NewTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	return newWhisperTranscriber(cfg, logger)
}
