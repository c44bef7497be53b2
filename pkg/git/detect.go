// Package git identifies the repository a check was run from, so published
// results can be grouped per project.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const lookupTimeout = 5 * time.Second

// Runner runs a git subcommand in dir and returns its trimmed stdout.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// ExecRunner shells out to the git binary.
func ExecRunner(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Detector resolves repository information.
type Detector struct {
	Run Runner
}

// NewDetector returns a Detector backed by the git binary.
func NewDetector() *Detector {
	return &Detector{Run: ExecRunner}
}

// TopLevel returns the root of the work tree containing dir.
func (d *Detector) TopLevel(ctx context.Context, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	return d.Run(ctx, dir, "rev-parse", "--show-toplevel")
}

// RepoName returns the base name of the repository containing dir. Outside a
// repository, or without git installed, it falls back to the base name of
// dir. An empty dir means the working directory.
func (d *Detector) RepoName(ctx context.Context, dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	if top, err := d.TopLevel(ctx, dir); err == nil && top != "" {
		return filepath.Base(top)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	return filepath.Base(abs)
}
