//go:build !whisper

package stt

import (
	"fmt"

	"palaver/internal/config"

	"github.com/sirupsen/logrus"
)

func newWhisperTranscriber(_ *config.Config, _ *logrus.Logger) (Transcriber, error) {
	return nil, fmt.Errorf("transcription requires a build with '-tags whisper' (whisper.cpp)")
}
