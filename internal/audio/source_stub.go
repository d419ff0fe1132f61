//go:build !whisper

package audio

import (
	"fmt"

	"palaver/internal/config"
)

func newMicSource(_ *config.Config) (Source, error) {
	return nil, fmt.Errorf("microphone capture requires a build with '-tags whisper' (PortAudio)")
}
