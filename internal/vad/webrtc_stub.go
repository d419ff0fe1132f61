//go:build !whisper

package vad

import (
	"fmt"

	"palaver/internal/config"
)

func newDetector(_ *config.Config) (Detector, error) {
	return nil, fmt.Errorf("voice activity detection requires a build with '-tags whisper' (WebRTC VAD)")
}
