package main

import (
	"fmt"
	"os"

	"palaver/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "palaver",
		Short: "Palaver — local voice chat companion",
		Long: `Palaver listens on your mic, segments speech with WebRTC VAD, transcribes locally with
whisper.cpp, answers with a local LLM (Ollama), and speaks replies through Kokoro TTS.

Key commands:
  chat                 Talk with the assistant (mic in, voice out)
  listen               Transcribe the microphone to stdout
  transcribe <wav>     Transcribe a WAV file
  ask "question"       One typed question, no microphone
  say "text"           Synthesize and play text
  mic list|set         Select microphone
  doctor|setup         Check deps / download default model

Notable flags/env:
  -c, --config <path>  Config file (TOML)
  Env overrides: PALAVER_LLM_MODEL, PALAVER_LLM_BASE_URL, PALAVER_TTS_ENABLED,
                 PALAVER_METRICS_ADDR, PALAVER_LOG_LEVEL/FORMAT,
                 PALAVER_TRANSCRIPTS_ENABLED`,
		Example: `  palaver chat
  palaver listen
  palaver ask "what's on today?"
  palaver say "ready when you are"
  palaver mic set "USB Audio"
  palaver doctor`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("Palaver v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/palaver/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewChatCmd(cfgPath))
	root.AddCommand(control.NewListenCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewAskCmd(cfgPath))
	root.AddCommand(control.NewSayCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sPalaver%s — local voice chat companion %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sListens on mic, transcribes locally, answers with a local LLM, speaks back.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  palaver [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  chat                 mic -> whisper -> LLM -> TTS loop")
		writeln("  listen               mic -> whisper to stdout")
		writeln("  transcribe <wav>     transcribe a WAV file")
		writeln("  ask \"question\"       one typed question (--speak plays the reply)")
		writeln("  say \"text\"           synthesize and play text")
		writeln("  mic list|set         select input device")
		writeln("  doctor               check deps/model/ollama/tts/portaudio")
		writeln("  setup                download default whisper model")
		writeln("  tail-log             show last log lines")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/palaver/config.toml)")
		writeln("  Env: PALAVER_LLM_MODEL=cogito:14b, PALAVER_LLM_BASE_URL=http://host:11434,")
		writeln("       PALAVER_TTS_ENABLED=0, PALAVER_METRICS_ADDR=host:port,")
		writeln("       PALAVER_LOG_LEVEL=debug, PALAVER_LOG_FORMAT=json,")
		writeln("       PALAVER_TRANSCRIPTS_ENABLED=1")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  palaver setup && palaver chat")
		writeln("  palaver listen")
		writeln("  palaver ask --speak \"what's on today?\"")
		writeln("  palaver mic set \"USB Audio\"")
		writeln("  PALAVER_METRICS_ADDR=127.0.0.1:9321 palaver chat")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
