package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/dataops-tools/model-diff/cmd/formatters"
	"github.com/dataops-tools/model-diff/cmd/report"
)

// runDiff is the diff subcommand entrypoint: merge config, resolve the
// warehouse connection, run the differ, render, and deliver the report.
func runDiff(ctx context.Context, model string) error {
	config := buildRunConfig(model)
	initLogger(config.Debug, config.LogFormat)

	if err := config.Validate(); err != nil {
		return err
	}

	projectDir, err := filepath.Abs(config.ProjectDir)
	if err != nil {
		return err
	}
	profilesDir, err := filepath.Abs(config.ProfilesDir)
	if err != nil {
		return err
	}
	config.ProjectDir = projectDir
	config.ProfilesDir = profilesDir

	connInfo, err := loadConnectionInfo(config.ProfilesDir, config.Profile, config.Target)
	if err != nil {
		return err
	}
	adapter, err := GetAdapter(connInfo.Type)
	if err != nil {
		return err
	}

	logger.Debug(fmt.Sprintf("Diffing %s between %s and %s on %s (%s:%d/%s)",
		config.Model, config.BaseRef, config.HeadRef, adapter.Name(),
		connInfo.Host, connInfo.Port, connInfo.DBName))

	differ := NewDiffer(config, adapter, connInfo, logger)

	var rep *report.Report
	if config.Format == "text" && isatty.IsTerminal(os.Stdout.Fd()) {
		title := fmt.Sprintf("model-diff: %s (%s → %s)", config.Model, config.BaseRef, config.HeadRef)
		rep, err = runDifferWithProgress(ctx, differ, title)
	} else {
		rep, err = differ.Run(ctx)
	}
	if err != nil {
		return err
	}

	formatter := formatters.GetFormatter(config.Format)
	data, err := formatter.Render(rep)
	if err != nil {
		return err
	}

	if config.Output != "" {
		if err := os.WriteFile(config.Output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", config.Output, err)
		}
		logger.Info(fmt.Sprintf("Report written to %s", config.Output))
	} else {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	}

	if config.Publish.Enabled {
		publisher, err := NewPublisher(config.Publish, config.DryRun, logger)
		if err != nil {
			return err
		}
		if err := publisher.Publish(ctx, data,
			rep.Meta.Model, rep.Meta.Base, rep.Meta.Head, rep.Meta.Mode,
			formatter.Extension(), formatter.MIMEType()); err != nil {
			return err
		}
	}

	return nil
}
