//go:build whisper

package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"palaver/internal/config"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

// whisperTranscriber runs whisper.cpp on finalized utterances. The model is
// loaded once; contexts are created per call. Calls are serialized: the
// binding does not support concurrent Process on one model.
type whisperTranscriber struct {
	cfg    *config.Config
	logger *logrus.Logger
	model  whisper.Model

	mu sync.Mutex
}

func newWhisperTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	model, err := whisper.New(cfg.ASR.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &whisperTranscriber{cfg: cfg, logger: logger, model: model}, nil
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, samples []float32, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", err
	}
	if lang := strings.TrimSpace(w.cfg.ASR.Language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			w.logger.Warnf("set language: %v", err)
		}
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		b.WriteString(seg.Text)
		if !strings.HasSuffix(seg.Text, " ") {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (w *whisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model.Close()
}
