package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"palaver/internal/config"
	"palaver/internal/logging"
	"palaver/internal/vad"
)

// fakeSource drives the capture callback by hand.
type fakeSource struct {
	mu       sync.Mutex
	cb       func([]float32)
	failOpen error
	opens    int
	pauses   int
	resumes  int
	closes   int
}

func (f *fakeSource) Open(cb func([]float32)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.failOpen != nil {
		return f.failOpen
	}
	f.cb = cb
	return nil
}

func (f *fakeSource) Pause() error  { f.mu.Lock(); defer f.mu.Unlock(); f.pauses++; return nil }
func (f *fakeSource) Resume() error { f.mu.Lock(); defer f.mu.Unlock(); f.resumes++; return nil }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.cb = nil
	return nil
}

func (f *fakeSource) push(frame []float32) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// fakeTranscriber labels each utterance by its loudest sample so tests can
// tell utterances apart. errs pops one error per call while non-empty.
type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, samples []float32, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	var peak float32
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	return fmt.Sprintf("utterance-%.1f", peak), nil
}

func (f *fakeTranscriber) Close() error { return nil }

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Pipeline.PollMS = 20
	cfg.Pipeline.JoinTimeoutSec = 1
	return cfg
}

func speechBurst(gateScript []vad.Decision) (*fakeSource, func(*Pipeline)) {
	src := &fakeSource{}
	frame := make([]float32, 512)
	for i := range frame {
		frame[i] = 0.5
	}
	return src, func(p *Pipeline) {
		for range gateScript {
			src.push(frame)
		}
	}
}

func TestPipelineDeliversUtteranceText(t *testing.T) {
	script := decisions(rep(vad.None, 3), rep(vad.Start, 1), rep(vad.Continue, 10), rep(vad.End, 1))
	src, feed := speechBurst(script)
	tr := &fakeTranscriber{}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{decisions: script}, tr)

	stream, err := p.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	feed(p)

	text, ok := stream.Next()
	if !ok {
		t.Fatalf("stream ended early")
	}
	if text != "utterance-0.5" {
		t.Fatalf("unexpected text %q", text)
	}
	if tr.callCount() != 1 {
		t.Fatalf("want exactly one transcription, got %d", tr.callCount())
	}
}

func TestPipelinePreservesOrder(t *testing.T) {
	// Two bursts; a single worker must deliver them in speech order.
	script := decisions(
		rep(vad.Start, 1), rep(vad.Continue, 4), rep(vad.End, 1),
		rep(vad.None, 2),
		rep(vad.Start, 1), rep(vad.Continue, 4), rep(vad.End, 1),
	)
	src := &fakeSource{}
	tr := &fakeTranscriber{}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{decisions: script}, tr)

	stream, err := p.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	quiet := make([]float32, 512)
	loudA := make([]float32, 512)
	loudB := make([]float32, 512)
	for i := range loudA {
		loudA[i] = 0.4
		loudB[i] = 0.8
	}
	for i := 0; i < 6; i++ {
		src.push(loudA)
	}
	src.push(quiet)
	src.push(quiet)
	for i := 0; i < 6; i++ {
		src.push(loudB)
	}

	first, ok := stream.Next()
	if !ok || first != "utterance-0.4" {
		t.Fatalf("first: %q ok=%v", first, ok)
	}
	second, ok := stream.Next()
	if !ok || second != "utterance-0.8" {
		t.Fatalf("second: %q ok=%v", second, ok)
	}
}

func TestPipelineEnergyGateSuppressesTranscription(t *testing.T) {
	script := decisions(rep(vad.Start, 1), rep(vad.Continue, 4), rep(vad.End, 1))
	src := &fakeSource{}
	tr := &fakeTranscriber{}
	cfg := testConfig(t)
	cfg.VAD.EnergyThresh = 0.01
	p := New(cfg, logging.NewTestLogger(), src, &scriptGate{decisions: script}, tr)

	if _, err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	// Loud enough to fool the scripted gate, too quiet for the energy check.
	whisperQuiet := make([]float32, 512)
	for i := range whisperQuiet {
		whisperQuiet[i] = 0.001
	}
	for i := 0; i < 6; i++ {
		src.push(whisperQuiet)
	}

	// Finalize happened, transcription must not.
	deadline := time.Now().Add(time.Second)
	for p.Metrics().quiet.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Metrics().quiet.Load() != 1 {
		t.Fatalf("quiet counter: %d", p.Metrics().quiet.Load())
	}
	if tr.callCount() != 0 {
		t.Fatalf("transcriber must not run on quiet utterance")
	}
	if p.seg.CurrentState() != Waiting {
		t.Fatalf("segmenter must be back in Waiting")
	}
}

func TestPipelineTranscribeFailureIsNotFatal(t *testing.T) {
	script := decisions(
		rep(vad.Start, 1), rep(vad.End, 1),
		rep(vad.Start, 1), rep(vad.End, 1),
	)
	src := &fakeSource{}
	tr := &fakeTranscriber{errs: []error{errors.New("model exploded")}}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{decisions: script}, tr)

	stream, err := p.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	loud := make([]float32, 512)
	for i := range loud {
		loud[i] = 0.5
	}
	for i := 0; i < 4; i++ {
		src.push(loud)
	}

	// First utterance fails and is dropped; second still arrives.
	text, ok := stream.Next()
	if !ok || text != "utterance-0.5" {
		t.Fatalf("worker died after failure: %q ok=%v", text, ok)
	}
	if p.Metrics().failed.Load() != 1 {
		t.Fatalf("failure counter: %d", p.Metrics().failed.Load())
	}
}

func TestPipelineStartFailurePropagates(t *testing.T) {
	src := &fakeSource{failOpen: errors.New("device unavailable")}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{}, &fakeTranscriber{})
	if _, err := p.Start(); err == nil {
		t.Fatalf("start must fail when the device cannot open")
	}
	// Failure must not leave the pipeline half-running.
	src.failOpen = nil
	if _, err := p.Start(); err != nil {
		t.Fatalf("start after failed open: %v", err)
	}
	p.Stop()
}

func TestPipelineStartWhileRunningIsNoop(t *testing.T) {
	src := &fakeSource{}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{}, &fakeTranscriber{})
	s1, err := p.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()
	s2, err := p.Start()
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("second start must return the live stream")
	}
	if src.opens != 1 {
		t.Fatalf("source must open once, got %d", src.opens)
	}
}

func TestPipelineStopIsIdempotentAndUnblocksNext(t *testing.T) {
	src := &fakeSource{}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{}, &fakeTranscriber{})
	stream, err := p.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	got := make(chan bool, 1)
	go func() {
		_, ok := stream.Next()
		got <- ok
	}()

	p.Stop()
	p.Stop() // second stop: no-op, no panic

	select {
	case ok := <-got:
		if ok {
			t.Fatalf("Next must report end of stream after stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Next did not unblock on stop")
	}
	if src.closes != 1 {
		t.Fatalf("source closed %d times", src.closes)
	}
}

func TestPipelineRestartIsClean(t *testing.T) {
	script := decisions(rep(vad.Start, 1), rep(vad.End, 1))
	src := &fakeSource{}
	tr := &fakeTranscriber{}
	cfg := testConfig(t)
	p := New(cfg, logging.NewTestLogger(), src, &scriptGate{decisions: script}, tr)

	if _, err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.Stop()

	// A stale utterance left behind from the previous session must be
	// discarded by the next Start.
	p.q.Push(&Utterance{Samples: []float32{0.9, 0.9}})

	stream, err := p.Start()
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer p.Stop()

	loud := make([]float32, 512)
	for i := range loud {
		loud[i] = 0.5
	}
	src.push(loud)
	src.push(loud)

	text, ok := stream.Next()
	if !ok {
		t.Fatalf("stream ended early")
	}
	if text != "utterance-0.5" {
		t.Fatalf("stale utterance replayed: %q", text)
	}
}

func TestPipelinePauseResume(t *testing.T) {
	src := &fakeSource{}
	p := New(testConfig(t), logging.NewTestLogger(), src, &scriptGate{}, &fakeTranscriber{})
	if _, err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()
	p.Pause()
	p.Resume()
	if src.pauses != 1 || src.resumes != 1 {
		t.Fatalf("pause/resume not forwarded: %d/%d", src.pauses, src.resumes)
	}
}
