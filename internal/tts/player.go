package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"palaver/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Player runs an external command to play a WAV file. The command comes from
// tts.player_command, or is autodetected (afplay on macOS, then aplay, then
// ffplay). The file path is appended as the final argument.
type Player struct {
	command []string
	timeout time.Duration
	logger  *logrus.Logger
}

func NewPlayer(cfg *config.Config, logger *logrus.Logger) (*Player, error) {
	command, err := resolvePlayerCommand(cfg.TTS.PlayerCommand)
	if err != nil {
		return nil, err
	}
	return &Player{
		command: command,
		timeout: time.Duration(float64(time.Second) * cfg.TTS.TimeoutSec),
		logger:  logger,
	}, nil
}

// Play blocks until the player exits. Player output is logged, not shown.
func (p *Player) Play(ctx context.Context, path string) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if p.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	args := append(append([]string{}, p.command[1:]...), path)
	cmd := exec.CommandContext(runCtx, p.command[0], args...)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		p.logger.Debugf("player output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("play %s: %w", p.command[0], err)
	}
	return nil
}

func resolvePlayerCommand(raw string) ([]string, error) {
	if strings.TrimSpace(raw) != "" {
		parts, err := shlex.Split(raw)
		if err != nil {
			return nil, fmt.Errorf("parse tts.player_command: %w", err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("tts.player_command is empty after parsing")
		}
		return parts, nil
	}

	var candidates [][]string
	if runtime.GOOS == "darwin" {
		candidates = append(candidates, []string{"afplay"})
	}
	candidates = append(candidates,
		[]string{"aplay", "-q"},
		[]string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	)
	for _, c := range candidates {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no audio player found (set tts.player_command)")
}
