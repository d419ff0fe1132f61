// Package control implements the CLI commands.
package control

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"palaver/internal/audio"
	"palaver/internal/chat"
	"palaver/internal/config"
	"palaver/internal/doctor"
	"palaver/internal/llm"
	"palaver/internal/logging"
	"palaver/internal/pipeline"
	"palaver/internal/stt"
	"palaver/internal/tts"
	"palaver/internal/vad"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// buildPipeline wires the capture chain from config. The transcriber is
// returned separately so callers can close the model.
func buildPipeline(cfg *config.Config, logger *logrus.Logger) (*pipeline.Pipeline, stt.Transcriber, error) {
	source, err := audio.NewSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	gate, err := vad.NewGate(cfg)
	if err != nil {
		return nil, nil, err
	}
	trans, err := stt.NewTranscriber(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(cfg, logger, source, gate, trans), trans, nil
}

// NewChatCmd runs the interactive voice conversation.
func NewChatCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk with the assistant (mic in, voice out)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			pipe, trans, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer trans.Close()

			completer, err := llm.NewCompleter(cfg)
			if err != nil {
				return err
			}
			conv := llm.NewConversation(completer, cfg.LLM.SystemPrompt)

			var voice chat.Voice
			if cfg.TTS.Enabled {
				speaker, err := tts.NewSpeaker(cfg, logger)
				if err != nil {
					return err
				}
				voice = speaker
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return chat.NewRunner(cfg, logger, pipe, conv, voice).Run(ctx)
		},
	}
}

// NewListenCmd prints transcribed utterances without the assistant.
func NewListenCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Transcribe the microphone to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			pipe, trans, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer trans.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stream, err := pipe.Start()
			if err != nil {
				return err
			}
			go func() {
				<-ctx.Done()
				pipe.Stop()
			}()
			if cfg.Metrics.Enabled {
				go pipe.Metrics().Serve(ctx.Done(), cfg.Metrics.Addr, logger)
			}
			for {
				text, ok := stream.Next()
				if !ok {
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
		},
	}
}

// NewAskCmd sends one typed question to the assistant.
func NewAskCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask \"some question\"",
		Short: "Ask the assistant without the microphone",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			completer, err := llm.NewCompleter(cfg)
			if err != nil {
				return err
			}
			conv := llm.NewConversation(completer, cfg.LLM.SystemPrompt)
			reply, err := conv.GenerateText(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)

			speak, _ := cmd.Flags().GetBool("speak")
			if !speak {
				return nil
			}
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			speaker, err := tts.NewSpeaker(cfg, logger)
			if err != nil {
				return err
			}
			return speaker.Speak(cmd.Context(), reply)
		},
	}
	cmd.Flags().Bool("speak", false, "also play the reply through TTS")
	return cmd
}

// NewSayCmd speaks text through the TTS endpoint.
func NewSayCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "say \"some text\"",
		Short: "Synthesize and play text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			speaker, err := tts.NewSpeaker(cfg, logger)
			if err != nil {
				return err
			}
			return speaker.Speak(cmd.Context(), strings.Join(args, " "))
		},
	}
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg)
			failed := false
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					failed = true
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-4s %s\n", r.Name, status, r.Detail)
			}
			if failed {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewTailLogCmd shows the last log lines.
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tail-log",
		Short: "Show last 50 log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return tailFile(cmd, cfg.Paths.LogPath, 50)
		},
	}
}

func tailFile(cmd *cobra.Command, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
	}
	return nil
}
