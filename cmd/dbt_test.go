package cmd

import (
	"context"
	"errors"
	"testing"
)

func TestDbtBuildRejectsNonProjectDir(t *testing.T) {
	err := dbtBuild(context.Background(), t.TempDir(), "/nonexistent/profiles", "orders", "")
	if !errors.Is(err, ErrNotDbtProject) {
		t.Errorf("want ErrNotDbtProject, got %v", err)
	}
}
