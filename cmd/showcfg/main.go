package main

import (
	"fmt"

	"palaver/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("llm=%s/%s tts=%v voice=%s\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.TTS.Enabled, cfg.TTS.Voice)
	fmt.Printf("audio=%dHz frame=%d vad=%d silence=%dms lookback=%d max=%gs\n",
		cfg.Audio.SampleRate, cfg.Audio.FrameSamples, cfg.VAD.Aggressiveness,
		cfg.VAD.SilenceMS, cfg.Segment.LookbackFrames, cfg.Segment.MaxSpeechSecs)
	fmt.Printf("model=%s workers=%d\n", cfg.ASR.ModelPath, cfg.Pipeline.Workers)
}
