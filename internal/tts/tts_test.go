package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"palaver/internal/config"
	"palaver/internal/logging"
)

func testSpeakerConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Paths.StateDir = t.TempDir()
	cfg.TTS.URL = url
	cfg.TTS.PlayerCommand = "true" // exits 0 without touching audio hardware
	cfg.TTS.TimeoutSec = 5
	return cfg
}

func TestSynthesizeWritesWAV(t *testing.T) {
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("RIFFfakewav"))
	}))
	defer srv.Close()

	cfg := testSpeakerConfig(t, srv.URL)
	s, err := NewSpeaker(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}

	path, err := s.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	defer os.Remove(path)

	if got.Input != "hello there" {
		t.Fatalf("input not forwarded: %q", got.Input)
	}
	if got.Voice != cfg.TTS.Voice || got.Model != cfg.TTS.Model {
		t.Fatalf("voice/model not forwarded: %+v", got)
	}
	if got.ResponseFormat != "wav" {
		t.Fatalf("response_format: %q", got.ResponseFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "RIFFfakewav" {
		t.Fatalf("file content %q", data)
	}
	if !strings.HasPrefix(path, cfg.Paths.StateDir) {
		t.Fatalf("scratch file outside state dir: %s", path)
	}
}

func TestSynthesizeSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewSpeaker(testSpeakerConfig(t, srv.URL), logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error on 503")
	} else if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("error should carry server detail: %v", err)
	}
}

func TestSpeakRemovesScratchFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("RIFFfakewav"))
	}))
	defer srv.Close()

	cfg := testSpeakerConfig(t, srv.URL)
	s, err := NewSpeaker(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("new speaker: %v", err)
	}
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	entries, err := os.ReadDir(cfg.Paths.StateDir)
	if err != nil {
		t.Fatalf("read state dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "speech-") {
			t.Fatalf("scratch file left behind: %s", e.Name())
		}
	}
}

func TestResolvePlayerCommandParsesConfigured(t *testing.T) {
	cmd, err := resolvePlayerCommand(`ffplay -nodisp -autoexit "my file arg"`)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"ffplay", "-nodisp", "-autoexit", "my file arg"}
	if len(cmd) != len(want) {
		t.Fatalf("parsed %v", cmd)
	}
	for i := range want {
		if cmd[i] != want[i] {
			t.Fatalf("parsed %v want %v", cmd, want)
		}
	}
}

func TestResolvePlayerCommandRejectsBadQuoting(t *testing.T) {
	if _, err := resolvePlayerCommand(`aplay "unterminated`); err == nil {
		t.Fatalf("expected parse error")
	}
}
