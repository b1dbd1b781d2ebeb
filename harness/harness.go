package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the process was killed.
const waitDelay = 2 * time.Second

// Timer runs a command to completion and reports how long it took.
type Timer interface {
	RunAndTime(ctx context.Context, cmd CommandConfig) (time.Duration, error)
}

// ExecTimer runs commands as child processes. A non-zero exit status is
// logged and the elapsed time is still returned; only a process that
// cannot be started, or a cancelled parent context, is an error.
type ExecTimer struct {
	Dir     string
	Timeout time.Duration
	Output  io.Writer
	Logger  *slog.Logger
}

// NewExecTimer creates an ExecTimer running commands in dir with no
// timeout. Child output is discarded.
func NewExecTimer(dir string, logger *slog.Logger) *ExecTimer {
	return &ExecTimer{
		Dir:    dir,
		Output: io.Discard,
		Logger: logger,
	}
}

// RunAndTime executes cc and blocks until it exits.
func (t *ExecTimer) RunAndTime(
	ctx context.Context,
	cc CommandConfig,
) (time.Duration, error) {
	parent := ctx

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cc.Binary, cc.Args...)
	cmd.Dir = t.Dir
	cmd.WaitDelay = waitDelay

	if len(cc.Env) > 0 {
		cmd.Env = append(os.Environ(), cc.Env...)
	}

	out := t.Output
	if out == nil {
		out = io.Discard
	}

	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = io.MultiWriter(out, &stderr)

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", cc.Binary, err)
	}

	err := cmd.Wait()
	elapsed := time.Since(start)

	if err != nil {
		if parent.Err() != nil {
			return elapsed, fmt.Errorf("run %s: %w", cc.Binary, parent.Err())
		}

		attrs := []any{
			slog.String("command", cc.Binary),
			slog.String("args", strings.Join(cc.Args, " ")),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, slog.Int("exit_code", exitErr.ExitCode()))
		}

		if s := strings.TrimSpace(stderr.String()); s != "" {
			attrs = append(attrs, slog.String("stderr", lastLine(s)))
		}

		t.logger().WarnContext(parent, "benchmark process failed", attrs...)
	}

	return elapsed, nil
}

func (t *ExecTimer) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}

	return t.Logger
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}

	return s
}
