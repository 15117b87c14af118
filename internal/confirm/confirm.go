// Package confirm asks on the terminal whether a failed mail command
// should be run again.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/psantana5/msmtp-retry/internal/logging"
	"github.com/psantana5/msmtp-retry/internal/report"
	"github.com/psantana5/msmtp-retry/internal/supervisor"
	"github.com/psantana5/msmtp-retry/internal/tty"
)

// Prompt is printed before every answer is read
const Prompt = "%s failed with exit code %d. Retry? (y/n): "

// Confirmer runs the y/n dialogue on a terminal device
type Confirmer struct {
	device  tty.Device
	command string
	logger  *logging.Logger
}

// New creates a confirmer that names command in its prompt
func New(device tty.Device, command string, logger *logging.Logger) *Confirmer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Confirmer{
		device:  device,
		command: command,
		logger:  logger,
	}
}

// Confirm prompts until the answer is y or n. Any other answer,
// including an empty line, prompts again. There is no limit.
//
// End of input with nothing read is a terminal error: the answer can
// never arrive, and prompting again would spin.
func (c *Confirmer) Confirm(ctx context.Context, exitCode int) (report.Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return report.DecisionTerminalError, c.terminalError("prompting on", exitCode, err)
		}

		answer, err := c.ask(exitCode)
		if err != nil {
			return report.DecisionTerminalError, err
		}

		switch Normalize(answer) {
		case "y":
			return report.DecisionRetry, nil
		case "n":
			return report.DecisionDecline, nil
		default:
			c.logger.Debug("unrecognised answer, asking again", map[string]interface{}{
				"answer": strings.TrimSpace(answer),
			})
		}
	}
}

// ask runs one prompt cycle on a freshly opened handle
func (c *Confirmer) ask(exitCode int) (string, error) {
	rw, err := c.device.Open()
	if err != nil {
		return "", c.terminalError("opening", exitCode, err)
	}
	defer rw.Close()

	if !tty.IsInteractive(rw) {
		c.logger.Debug("terminal device is not interactive", map[string]interface{}{
			"device": c.device.Path(),
		})
	}

	if _, err := fmt.Fprintf(rw, Prompt, c.command, exitCode); err != nil {
		return "", c.terminalError("writing to", exitCode, err)
	}

	line, err := bufio.NewReader(rw).ReadString('\n')
	if err != nil {
		// A last line without newline is still an answer.
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", c.terminalError("reading from", exitCode, err)
	}
	return line, nil
}

func (c *Confirmer) terminalError(op string, exitCode int, err error) error {
	return supervisor.NewTerminalError(op, c.device.Path(), c.command, exitCode, err)
}

// Normalize trims surrounding whitespace and lower-cases an answer
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
