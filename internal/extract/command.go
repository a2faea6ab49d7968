package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"interntrack-backend/internal/shared/telemetry"
)

// PathPlaceholder is replaced with the input file path in command templates.
const PathPlaceholder = "{path}"

const defaultCommandTimeout = 2 * time.Minute

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	fields := map[string]any{
		"cmd":         name,
		"args":        strings.Join(args, " "),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err
		fields["stderr"] = truncate(errb.String(), 8<<10)
		telemetry.Error("extract.exec_failed", fields)
	} else {
		fields["stdout_bytes"] = out.Len()
		telemetry.Debug("extract.exec_ok", fields)
	}

	return out.Bytes(), errb.Bytes(), err
}

// Command runs an external program and reads the text from its stdout.
// A non-zero exit status is an error.
type Command struct {
	name   string
	args   []string
	runner Runner
	// Timeout bounds one run; the process is killed when it expires.
	Timeout time.Duration
}

// NewCommand parses a template such as "pdftotext -layout {path} -". When the
// template has no placeholder the path is appended as the last argument.
func NewCommand(template string, runner Runner) (*Command, error) {
	parts := strings.Fields(template)
	if len(parts) == 0 {
		return nil, fmt.Errorf("extract command is empty")
	}
	if runner == nil {
		runner = execRunner{}
	}
	args := parts[1:]
	hasPlaceholder := false
	for _, a := range args {
		if strings.Contains(a, PathPlaceholder) {
			hasPlaceholder = true
			break
		}
	}
	if !hasPlaceholder {
		args = append(args, PathPlaceholder)
	}
	return &Command{name: parts[0], args: args, runner: runner, Timeout: defaultCommandTimeout}, nil
}

// ExtractText runs the command for path.
func (c *Command) ExtractText(ctx context.Context, path string) (string, error) {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, PathPlaceholder, path)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	stdout, stderr, err := c.runner.Run(ctx, c.name, args...)
	if err != nil {
		msg := strings.TrimSpace(truncate(string(stderr), 512))
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	return string(stdout), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
