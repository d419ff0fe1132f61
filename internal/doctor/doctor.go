// Package doctor runs environment diagnostics for the voice chat setup.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"palaver/internal/config"
)

const defaultOllamaURL = "http://127.0.0.1:11434"

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkFile("whisper model", cfg.ASR.ModelPath),
		checkStateDir(cfg.Paths.StateDir),
		checkPlayer(cfg.TTS.PlayerCommand),
		checkPortAudioPkgConfig(),
	}
	results = append(results, checkPortAudio())
	results = append(results, checkHTTP("ollama", ollamaURL(cfg)))
	if cfg.TTS.Enabled {
		results = append(results, checkHTTP("tts endpoint", cfg.TTS.URL))
	}
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkStateDir(dir string) Result {
	label := "state dir"
	if dir == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	probe, err := os.CreateTemp(dir, "doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("not writable: %v", err)}
	}
	probe.Close()
	os.Remove(probe.Name())
	return Result{Name: label, Pass: true, Detail: dir}
}

func checkPlayer(raw string) Result {
	label := "audio player"
	if strings.TrimSpace(raw) != "" {
		name := strings.Fields(raw)[0]
		resolved, err := exec.LookPath(os.ExpandEnv(name))
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		return Result{Name: label, Pass: true, Detail: resolved}
	}
	for _, name := range []string{"afplay", "aplay", "ffplay"} {
		if resolved, err := exec.LookPath(name); err == nil {
			return Result{Name: label, Pass: true, Detail: resolved}
		}
	}
	return Result{Name: label, Pass: false, Detail: "no player found (set tts.player_command)"}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found (brew install pkg-config)"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio pkg", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio pkg", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio pkg", Pass: true, Detail: "found via pkg-config"}
}

func checkHTTP(label, url string) Result {
	if url == "" {
		return Result{Name: label, Pass: false, Detail: "no URL configured"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	resp.Body.Close()
	// Any response means the service is up; speech endpoints often reject GET.
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s (%s)", url, resp.Status)}
}

func ollamaURL(cfg *config.Config) string {
	if strings.ToLower(cfg.LLM.Provider) != "ollama" && cfg.LLM.Provider != "" {
		return cfg.LLM.BaseURL
	}
	if cfg.LLM.BaseURL != "" {
		return cfg.LLM.BaseURL
	}
	return defaultOllamaURL
}
