// Package pipeline implements the real-time speech segmentation pipeline:
// microphone frames in, finalized utterance texts out.
//
// Data flows one way: Source -> Gate -> Segmenter -> queue -> workers ->
// Stream. Control flows the other way through Start/Stop. The capture
// callback never blocks; everything slow (whisper, most of all) runs on the
// worker side of the queue.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"palaver/internal/audio"
	"palaver/internal/config"
	"palaver/internal/stt"
	"palaver/internal/vad"

	"github.com/sirupsen/logrus"
)

const streamBuffer = 16

// Pipeline wires the capture source, segmenter, dispatch queue, and
// transcription workers together and owns their shared lifecycle.
// Start and Stop are safe to call from any goroutine.
type Pipeline struct {
	cfg    *config.Config
	logger *logrus.Logger
	source audio.Source
	trans  stt.Transcriber

	seg     *Segmenter
	q       *queue
	metrics *Metrics

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	stream  *Stream
	wg      *sync.WaitGroup
}

// New assembles a pipeline from its collaborators. gate and trans are
// injected so tests (and alternative backends) can swap them.
func New(cfg *config.Config, logger *logrus.Logger, source audio.Source, gate vad.Gate, trans stt.Transcriber) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		trans:   trans,
		q:       newQueue(),
		metrics: &Metrics{},
	}
	p.seg = NewSegmenter(gate, SegmenterConfig{
		SampleRate:     cfg.Audio.SampleRate,
		FrameSamples:   cfg.Audio.FrameSamples,
		LookbackFrames: cfg.Segment.LookbackFrames,
		MaxSpeechSecs:  cfg.Segment.MaxSpeechSecs,
	}, logger, p.enqueue)
	return p
}

// Metrics exposes the pipeline's counters.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// enqueue is the segmenter's finalize sink. Runs on the capture path: it
// must only move the utterance into the queue.
func (p *Pipeline) enqueue(u *Utterance) {
	p.metrics.incFinalized()
	p.logger.Debugf("utterance %s finalized (%.2fs, queue depth %d)", u.ID, u.Duration.Seconds(), p.q.Len())
	p.q.Push(u)
}

// Start opens the microphone and returns the stream of utterance texts.
// Calling Start on a running pipeline is a no-op that returns the live
// stream. A failed device open aborts the session and is returned.
func (p *Pipeline) Start() (*Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logger.Warn("pipeline already running; start ignored")
		return p.stream, nil
	}

	// Fresh session: nothing from the previous one may leak through.
	p.seg.Reset()
	if n := p.q.Drain(); n > 0 {
		p.logger.Debugf("discarded %d stale queued utterances", n)
	}

	p.stopCh = make(chan struct{})
	p.stream = newStream(streamBuffer)
	p.wg = &sync.WaitGroup{}

	workers := p.cfg.Pipeline.Workers
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(p.stopCh, p.stream)
	}

	if err := p.source.Open(p.seg.ProcessFrame); err != nil {
		// Unwind the workers we just spawned.
		close(p.stopCh)
		for i := 0; i < workers; i++ {
			p.q.Push(nil)
		}
		p.wg.Wait()
		p.q.Drain()
		return nil, err
	}

	p.running = true
	p.logger.Infof("pipeline started (%d Hz, frame %d samples, %d worker(s))",
		p.cfg.Audio.SampleRate, p.cfg.Audio.FrameSamples, workers)
	return p.stream, nil
}

// Stop shuts the pipeline down: closes the source, wakes the workers with
// sentinels, joins them with a bounded timeout, and ends the stream.
// Idempotent; never blocks indefinitely.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false

	close(p.stopCh)
	if err := p.source.Close(); err != nil {
		p.logger.Warnf("close source: %v", err)
	}
	for i := 0; i < p.cfg.Pipeline.Workers; i++ {
		p.q.Push(nil)
	}

	done := make(chan struct{})
	go func(wg *sync.WaitGroup) {
		wg.Wait()
		close(done)
	}(p.wg)
	timeout := time.Duration(p.cfg.Pipeline.JoinTimeoutSec * float64(time.Second))
	select {
	case <-done:
	case <-time.After(timeout):
		p.logger.Warn("transcription worker did not exit within join timeout")
	}

	p.stream.close()
	p.logger.Info("pipeline stopped")
}

// Pause suspends capture, e.g. while the assistant's own voice plays.
func (p *Pipeline) Pause() {
	if err := p.source.Pause(); err != nil {
		p.logger.Warnf("pause capture: %v", err)
	}
}

// Resume restarts capture after Pause.
func (p *Pipeline) Resume() {
	if err := p.source.Resume(); err != nil {
		p.logger.Warnf("resume capture: %v", err)
	}
}

// worker pulls utterances off the queue, gates them on energy, and runs
// transcription. A failed utterance is logged and dropped; the loop only
// exits on the sentinel or the stop flag.
func (p *Pipeline) worker(stopCh <-chan struct{}, stream *Stream) {
	defer p.wg.Done()
	poll := time.Duration(p.cfg.Pipeline.PollMS) * time.Millisecond

	for {
		u, ok := p.q.Pop(poll)
		if !ok {
			select {
			case <-stopCh:
				return
			default:
				continue
			}
		}
		if u == nil {
			return // shutdown sentinel
		}

		if vad.MeanAbs(u.Samples) < p.cfg.VAD.EnergyThresh {
			p.metrics.incQuiet()
			p.logger.Debugf("utterance %s below energy threshold; skipping", u.ID)
			continue
		}

		// Once dequeued, an utterance runs to completion; shutdown is
		// reconsidered on the next iteration.
		text, err := p.trans.Transcribe(context.Background(), u.Samples, p.cfg.Audio.SampleRate)
		if err != nil {
			p.metrics.incFailed()
			p.logger.Errorf("transcribe %s: %v", u.ID, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		p.metrics.incTranscribed()
		p.logger.Infof("heard: %q", text)
		if !stream.push(text) {
			return
		}
	}
}
