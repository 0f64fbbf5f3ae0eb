// Package hooks runs operator-configured shell commands when gate check
// events occur, e.g. notifying a scheduling system once a lot passes a gate.
package hooks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 300 * time.Second

	// waitDelay bounds how long a killed hook may hold its output pipes.
	waitDelay = 2 * time.Second
)

// Result is the outcome of one hook command.
type Result struct {
	Output   string
	Duration time.Duration
	Err      error
}

func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

// shellCommand builds "sh -c command" with env layered over the process
// environment. dir is used only if it exists.
func shellCommand(ctx context.Context, command, dir string, env map[string]string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // commands come from the operator's hooks file
	cmd.WaitDelay = waitDelay
	if dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			cmd.Dir = dir
		}
	}
	extra := make([]string, 0, len(env))
	for k, v := range env {
		extra = append(extra, k+"="+v)
	}
	cmd.Env = append(os.Environ(), extra...)
	return cmd
}

// Execute runs command through the shell, killing it after timeout. Output
// is trimmed stdout, or stderr when stdout is empty.
func Execute(ctx context.Context, command string, timeout time.Duration, cwd string, env map[string]string) Result {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := shellCommand(ctx, command, cwd, env)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	began := time.Now()
	res := Result{Err: cmd.Run()}
	res.Duration = time.Since(began)

	if res.Output = strings.TrimSpace(stdout.String()); res.Output == "" {
		res.Output = strings.TrimSpace(stderr.String())
	}
	return res
}
