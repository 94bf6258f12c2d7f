package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// worktreeSet materializes isolated working copies of the repository at the
// base and head revisions, both under one temp dir so removal is cheap.
type worktreeSet struct {
	repoRoot   string
	projectRel string
	tmpDir     string
	logger     *slog.Logger
}

// newWorktreeSet locates the repository root containing projectDir and
// prepares a temp dir for the two working copies.
func newWorktreeSet(ctx context.Context, projectDir string, logger *slog.Logger) (*worktreeSet, error) {
	out, err := gitOutput(ctx, projectDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git repository for %s: %w", projectDir, err)
	}
	repoRoot := strings.TrimSpace(out)

	projectAbs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, err
	}
	projectRel, err := filepath.Rel(repoRoot, projectAbs)
	if err != nil {
		return nil, fmt.Errorf("project dir %s is not inside repository %s: %w", projectDir, repoRoot, err)
	}

	tmpDir, err := os.MkdirTemp("", "model-diff-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &worktreeSet{
		repoRoot:   repoRoot,
		projectRel: projectRel,
		tmpDir:     tmpDir,
		logger:     logger,
	}, nil
}

// Add creates a worktree for ref under the temp dir and returns the project
// directory inside it. Fails if the revision does not resolve.
func (w *worktreeSet) Add(ctx context.Context, side, ref string) (string, error) {
	dir := filepath.Join(w.tmpDir, side)
	if _, err := gitOutput(ctx, w.repoRoot, "worktree", "add", "--force", dir, ref); err != nil {
		return "", fmt.Errorf("failed to create worktree for %s: %w", ref, err)
	}
	return filepath.Join(dir, w.projectRel), nil
}

// Cleanup removes both worktrees and the temp dir. Best-effort: failures are
// logged and swallowed so they never mask a run error.
func (w *worktreeSet) Cleanup(ctx context.Context) {
	for _, side := range []string{"base", "head"} {
		dir := filepath.Join(w.tmpDir, side)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if _, err := gitOutput(ctx, w.repoRoot, "worktree", "remove", "--force", dir); err != nil {
			w.logger.Warn(fmt.Sprintf("Failed to remove worktree %s: %v", dir, err))
		}
	}
	if err := os.RemoveAll(w.tmpDir); err != nil {
		w.logger.Warn(fmt.Sprintf("Failed to remove temp dir %s: %v", w.tmpDir, err))
	}
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w\noutput: %s", strings.Join(args, " "), err, string(output))
	}
	return string(output), nil
}
