package control

import (
	"fmt"
	"strings"
	"time"

	"palaver/internal/audio"
	"palaver/internal/config"
	"palaver/internal/logging"
	"palaver/internal/stt"

	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a WAV file and optionally sends the text to
// the assistant.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <wavfile>",
		Short: "Transcribe a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}

			samples, err := audio.ReadWAVMono(args[0], cfg.Audio.SampleRate)
			if err != nil {
				return err
			}
			if dur, err := audio.WAVDuration(args[0]); err == nil {
				logger.Debugf("transcribing %s (%s)", args[0], dur.Round(10*time.Millisecond))
			}

			trans, err := stt.NewTranscriber(cfg, logger)
			if err != nil {
				return err
			}
			defer trans.Close()

			text, err := trans.Transcribe(cmd.Context(), samples, cfg.Audio.SampleRate)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	return cmd
}
