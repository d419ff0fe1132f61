//go:build whisper

package audio

import (
	"fmt"
	"strings"
	"sync"

	"palaver/internal/config"

	"github.com/gordonklaus/portaudio"
)

// micSource captures mono float32 frames from a PortAudio input stream.
type micSource struct {
	cfg *config.Config

	mu     sync.Mutex
	stream *portaudio.Stream
	open   bool
}

func newMicSource(cfg *config.Config) (Source, error) {
	return &micSource{cfg: cfg}, nil
}

func (m *micSource) Open(cb func(frame []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return fmt.Errorf("source already open")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	dev, err := SelectDevice(m.cfg.Audio.DeviceName)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: m.cfg.Audio.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.cfg.Audio.SampleRate),
		FramesPerBuffer: m.cfg.Audio.FrameSamples,
	}, func(in []float32) {
		cb(in)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}
	m.stream = stream
	m.open = true
	return nil
}

func (m *micSource) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || m.stream == nil {
		return nil
	}
	return m.stream.Stop()
}

func (m *micSource) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open || m.stream == nil {
		return nil
	}
	return m.stream.Start()
}

func (m *micSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	var err error
	if m.stream != nil {
		_ = m.stream.Stop()
		err = m.stream.Close()
		m.stream = nil
	}
	portaudio.Terminate()
	return err
}

// SelectDevice finds an input device by (partial) name, falling back to the
// system default.
func SelectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}
