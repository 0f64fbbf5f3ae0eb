package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	gitAuthorName  = "gatecheck"
	gitAuthorEmail = "gatecheck@localhost"
)

// GitDestination keeps the JSONL history as one file in a local clone and
// pushes a commit whenever it changes.
type GitDestination struct {
	repo   string
	file   string // relative to repo
	branch string
}

// NewGitDestination returns a destination for an existing clone at repo.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file)
}

// Write replaces the history file, then commits and pushes if its content
// changed.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	// Fails harmlessly when origin has no such branch yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	if err := replaceFile(filepath.Join(d.repo, d.file), data); err != nil {
		return err
	}
	if _, err := d.git(ctx, "add", "--", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	staged, err := d.hasStagedChanges(ctx)
	if err != nil {
		return err
	}
	if !staged {
		return nil
	}

	msg := "gatecheck: export history " + time.Now().UTC().Format(time.RFC3339)
	if _, err := d.git(ctx,
		"-c", "user.name="+gitAuthorName, "-c", "user.email="+gitAuthorEmail,
		"commit", "-m", msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	if _, err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// hasStagedChanges reports whether the index differs from HEAD. git diff
// --quiet exits 1 for "differs"; anything else is a real failure.
func (d *GitDestination) hasStagedChanges(ctx context.Context) (bool, error) {
	_, err := d.git(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff: %w", err)
}

// git runs a git subcommand in the clone. Combined output is attached to
// the error.
func (d *GitDestination) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, bytes.TrimSpace(out))
	}
	return out, nil
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
