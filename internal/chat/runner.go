// Package chat runs the interactive voice conversation: utterance texts from
// the pipeline go to the language model, replies are printed and spoken.
package chat

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"palaver/internal/config"
	"palaver/internal/pipeline"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Assistant produces one reply per user utterance. *llm.Conversation is the
// production implementation.
type Assistant interface {
	GenerateText(ctx context.Context, text string) (string, error)
}

// Voice plays a reply out loud. *tts.Speaker is the production
// implementation; nil means text-only chat.
type Voice interface {
	Speak(ctx context.Context, text string) error
}

// Runner owns one chat session over a running pipeline.
type Runner struct {
	cfg       *config.Config
	logger    *logrus.Logger
	pipe      *pipeline.Pipeline
	assistant Assistant
	voice     Voice

	in  io.Reader
	out io.Writer
}

func NewRunner(cfg *config.Config, logger *logrus.Logger, pipe *pipeline.Pipeline, assistant Assistant, voice Voice) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		pipe:      pipe,
		assistant: assistant,
		voice:     voice,
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

// Run starts the pipeline and converses until ctx is cancelled or the user
// types q. Always returns with the pipeline stopped.
func (r *Runner) Run(ctx context.Context) error {
	if err := config.MustStatePaths(r.cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.cfg.Metrics.Enabled {
		go r.pipe.Metrics().Serve(ctx.Done(), r.cfg.Metrics.Addr, r.logger)
	}

	stream, err := r.pipe.Start()
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, "Listening. Speak, or type q + Enter to quit.")

	// The stdin watcher stays a plain goroutine: a blocked read on a TTY
	// cannot be interrupted, and it must not keep Run from returning.
	if r.in != nil {
		go r.watchQuit(cancel)
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		// Stop unblocks stream.Next by closing the stream.
		<-ctx.Done()
		r.pipe.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return r.loop(ctx, stream)
	})
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, stream *pipeline.Stream) error {
	for {
		text, ok := stream.Next()
		if !ok {
			return nil
		}

		fmt.Fprintf(r.out, "\nYou: %s\n", text)
		r.recordTranscript("you", text)

		reply, err := r.assistant.GenerateText(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Errorf("generate reply: %v", err)
			fmt.Fprintln(r.out, "(no reply; see log)")
			continue
		}

		fmt.Fprintf(r.out, "Assistant: %s\n", reply)
		r.recordTranscript("assistant", reply)

		if r.voice != nil {
			// Pause capture so the microphone does not hear the reply.
			r.pipe.Pause()
			if err := r.voice.Speak(ctx, reply); err != nil {
				if ctx.Err() != nil {
					r.pipe.Resume()
					return nil
				}
				r.logger.Warnf("speak reply: %v", err)
			} else {
				r.pipe.Metrics().IncSpoken()
			}
			r.pipe.Resume()
		}
	}
}

func (r *Runner) watchQuit(cancel context.CancelFunc) {
	buf := make([]byte, 64)
	var line strings.Builder
	for {
		n, err := r.in.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' {
					switch strings.TrimSpace(strings.ToLower(line.String())) {
					case "q", "quit", "exit":
						r.logger.Info("quit requested")
						cancel()
						return
					}
					line.Reset()
					continue
				}
				line.WriteByte(b)
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *Runner) recordTranscript(role, text string) {
	if !r.cfg.Transcripts.Enabled {
		return
	}
	f, err := os.OpenFile(r.cfg.Paths.TranscriptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.logger.Warnf("open transcript: %v", err)
		return
	}
	if _, err := fmt.Fprintf(f, "%s\t%s\t%s\n", time.Now().Format(time.RFC3339), role, text); err != nil {
		r.logger.Warnf("write transcript: %v", err)
	}
	_ = f.Close()
}
