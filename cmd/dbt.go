package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNotDbtProject is returned when the resolved project directory does not
// contain a dbt_project.yml.
var ErrNotDbtProject = errors.New("dbt_project.yml not found")

// dbtBuild runs `dbt build --select <model>` against a project working copy.
// The build is opaque to us: it either makes the model's output queryable or
// fails, and failure is fatal and non-retriable.
func dbtBuild(ctx context.Context, projectDir, profilesDir, model, target string) error {
	if _, err := os.Stat(filepath.Join(projectDir, "dbt_project.yml")); err != nil {
		return fmt.Errorf("%w in %s", ErrNotDbtProject, projectDir)
	}

	args := []string{
		"build",
		"--project-dir", projectDir,
		"--profiles-dir", profilesDir,
		"--select", model,
	}
	if target != "" {
		args = append(args, "--target", target)
	}

	cmd := exec.CommandContext(ctx, "dbt", args...)
	cmd.Dir = projectDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("dbt build failed for %s: %w\noutput: %s", model, err, string(output))
	}
	return nil
}
