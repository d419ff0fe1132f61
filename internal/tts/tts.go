// Package tts turns assistant replies into audible speech via an
// OpenAI-compatible speech endpoint (Kokoro by default) and a local player.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"palaver/internal/audio"
	"palaver/internal/config"

	"github.com/sirupsen/logrus"
)

// Speaker synthesizes text to a WAV file and plays it through the
// configured player. Safe for sequential use from one goroutine.
type Speaker struct {
	cfg    *config.Config
	logger *logrus.Logger
	client *http.Client
	player *Player
}

// NewSpeaker builds a Speaker. It fails when no audio player is available,
// so callers find out at startup rather than at the first reply.
func NewSpeaker(cfg *config.Config, logger *logrus.Logger) (*Speaker, error) {
	player, err := NewPlayer(cfg, logger)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(float64(time.Second) * cfg.TTS.TimeoutSec)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Speaker{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: timeout},
		player: player,
	}, nil
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// Synthesize posts text to the speech endpoint and writes the returned WAV
// to a scratch file in the state dir. The caller owns the file.
func (s *Speaker) Synthesize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(speechRequest{
		Model:          s.cfg.TTS.Model,
		Input:          text,
		Voice:          s.cfg.TTS.Voice,
		Speed:          s.cfg.TTS.Speed,
		ResponseFormat: "wav",
	})
	if err != nil {
		return "", fmt.Errorf("encode speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TTS.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("speech endpoint returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	out, err := os.CreateTemp(s.cfg.Paths.StateDir, "speech-*.wav")
	if err != nil {
		return "", fmt.Errorf("create speech file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write speech file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close speech file: %w", err)
	}
	return out.Name(), nil
}

// Speak synthesizes and plays text, blocking until playback finishes.
// The scratch WAV is removed afterwards.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	path, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	if dur, err := audio.WAVDuration(path); err == nil {
		s.logger.WithFields(logrus.Fields{
			"voice":    s.cfg.TTS.Voice,
			"duration": dur.Round(10 * time.Millisecond).String(),
			"file":     filepath.Base(path),
		}).Debug("speech synthesized")
	}

	return s.player.Play(ctx, path)
}
