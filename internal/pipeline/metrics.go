package pipeline

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Metrics counts pipeline events. All counters are safe for concurrent use.
type Metrics struct {
	finalized   atomic.Int64
	quiet       atomic.Int64
	transcribed atomic.Int64
	failed      atomic.Int64
	spoken      atomic.Int64
}

func (m *Metrics) incFinalized()   { m.finalized.Add(1) }
func (m *Metrics) incQuiet()       { m.quiet.Add(1) }
func (m *Metrics) incTranscribed() { m.transcribed.Add(1) }
func (m *Metrics) incFailed()      { m.failed.Add(1) }

// IncSpoken records one reply played back; called by the chat loop.
func (m *Metrics) IncSpoken() { m.spoken.Add(1) }

// Transcribed reports how many utterances produced text.
func (m *Metrics) Transcribed() int64 { return m.transcribed.Load() }

// Serve exposes the counters in Prometheus text format until done is closed.
func (m *Metrics) Serve(done <-chan struct{}, addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "palaver_utterances_finalized_total %d\n", m.finalized.Load())
		fmt.Fprintf(w, "palaver_utterances_quiet_total %d\n", m.quiet.Load())
		fmt.Fprintf(w, "palaver_utterances_transcribed_total %d\n", m.transcribed.Load())
		fmt.Fprintf(w, "palaver_transcribe_failures_total %d\n", m.failed.Load())
		fmt.Fprintf(w, "palaver_replies_spoken_total %d\n", m.spoken.Load())
	})
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		<-done
		_ = server.Close()
	}()
	logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warnf("metrics server: %v", err)
	}
}
