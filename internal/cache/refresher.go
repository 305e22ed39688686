package cache

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/pfrederiksen/local-events/internal/logger"
)

// CommandRefresher regenerates the snapshot by running the external scraper
// command. The manager supervises the run in its own goroutine, so the exit
// status surfaces as a typed error instead of a raw process exit code.
type CommandRefresher struct {
	command []string
}

// NewCommandRefresher wraps a scraper invocation, e.g.
// []string{"python3", "scripts/scrape_venues.py"}.
func NewCommandRefresher(command []string) (*CommandRefresher, error) {
	if len(command) == 0 {
		return nil, errors.New("refresh command is empty")
	}
	return &CommandRefresher{command: command}, nil
}

// Refresh runs the scraper to completion. The context bounds the run;
// cancellation kills the child process.
func (r *CommandRefresher) Refresh(ctx context.Context) error {
	logger.Info("running venue scraper", logger.Fields{
		"command": r.command[0],
	})

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("venue scraper failed: %w (output: %.200s)", err, string(out))
	}
	return nil
}
