package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/dataops-tools/model-diff/cmd.Version=1.2.3"
	Version = "dev"

	cfgFile   string
	debug     bool
	logFormat string
	dryRun    bool

	diffKeys        string
	diffBase        string
	diffHead        string
	diffProjectDir  string
	diffProfilesDir string
	diffProfile     string
	diffTarget      string
	diffWhere       string
	diffSample      int
	diffKeepSchemas bool
	diffColStats    bool
	diffFormat      string
	diffOutput      string

	publishEnabled   bool
	s3Endpoint       string
	s3Bucket         string
	s3AccessKey      string
	s3SecretKey      string
	s3Region         string
	s3KeyTemplate    string
	compression      string
	compressionLevel int

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	logger *slog.Logger
)

// textOnlyHandler is a custom slog handler that outputs human-readable text
// without key=value pairs, suitable for interactive terminal usage
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &textOnlyHandler{
		opts:   *opts,
		writer: w,
	}
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	// Format: YYYY-MM-DD HH:MM:SS LEVEL message
	_, err := fmt.Fprintf(h.writer, "%s %s %s\n",
		r.Time.Format("2006-01-02 15:04:05"), r.Level.String(), r.Message)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *textOnlyHandler) WithGroup(_ string) slog.Handler {
	return h
}

// initLogger initializes the slog logger based on debug flag and log format.
// Logs go to stderr so formatted reports on stdout stay machine-parseable.
func initLogger(isDebug bool, format string) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if isDebug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "logfmt":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default: // "text" or anything else
		handler = newTextOnlyHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "model-diff",
	Version: Version,
	Short:   "🔍 Compare dbt model output between two git revisions",
	Long: titleStyle.Render("model-diff") + `

A CLI tool that rebuilds a dbt model at two git revisions, snapshots both
outputs into a disposable warehouse schema, and reports schema drift,
row-count drift, per-column statistics, and row-level added/removed/changed
counts. Supports PostgreSQL and Amazon Redshift.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// Show help when no subcommand is specified
		cmd.Help()
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <model>",
	Short: "Diff one model's output between two git refs",
	Long: `Diff one dbt model's materialized output between two git refs.
Without --keys the run stops at row counts, schema diff, and column
statistics; with --keys it also computes added/removed/changed rows and
samples changed key tuples.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd.Context(), args[0])
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under ctx (signal-aware contexts are
// created in main).
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(diffCmd)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.model-diff.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "skip publishing uploads")

	// Diff flags
	diffCmd.Flags().StringVar(&diffKeys, "keys", "", "comma-separated key columns; omit to run stats-only")
	diffCmd.Flags().StringVar(&diffBase, "base", "main", "base git ref/branch")
	diffCmd.Flags().StringVar(&diffHead, "head", "HEAD", "head git ref/branch")
	diffCmd.Flags().StringVar(&diffProjectDir, "project-dir", ".", "dbt project directory (must contain dbt_project.yml)")
	diffCmd.Flags().StringVar(&diffProfilesDir, "profiles-dir", ".", "dbt profiles directory (must contain profiles.yml)")
	diffCmd.Flags().StringVar(&diffProfile, "profile", "", "dbt profile name (default: DBT_PROFILE env or sole profile)")
	diffCmd.Flags().StringVar(&diffTarget, "target", "", "dbt target name (default: profile default target)")
	diffCmd.Flags().StringVar(&diffWhere, "where", "", "SQL predicate applied identically to both sides")
	diffCmd.Flags().IntVar(&diffSample, "sample", 20, "max changed key tuples to sample (full diff only)")
	diffCmd.Flags().BoolVar(&diffKeepSchemas, "keep-schemas", false, "keep the diff schema and snapshot tables after the run")
	diffCmd.Flags().BoolVar(&diffColStats, "col-stats", true, "compute null/distinct statistics per common column")
	diffCmd.Flags().StringVar(&diffFormat, "format", "text", "output format: text, json, markdown")
	diffCmd.Flags().StringVar(&diffOutput, "output", "", "write the rendered report to a file instead of stdout")

	// Publish flags
	diffCmd.Flags().BoolVar(&publishEnabled, "publish", false, "upload the rendered report to S3-compatible storage")
	diffCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	diffCmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket name")
	diffCmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	diffCmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")
	diffCmd.Flags().StringVar(&s3Region, "s3-region", "auto", "S3 region")
	diffCmd.Flags().StringVar(&s3KeyTemplate, "s3-key", "model-diff/{model}_{base}_{head}", "S3 object key template with placeholders: {model}, {base}, {head}, {mode}")
	diffCmd.Flags().StringVar(&compression, "compression", "none", "report artifact compression: zstd, lz4, gzip, none")
	diffCmd.Flags().IntVar(&compressionLevel, "compression-level", 0, "compression level (0 = codec default)")

	// Bind persistent flags
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))

	// Bind diff flags
	_ = viper.BindPFlag("keys", diffCmd.Flags().Lookup("keys"))
	_ = viper.BindPFlag("base", diffCmd.Flags().Lookup("base"))
	_ = viper.BindPFlag("head", diffCmd.Flags().Lookup("head"))
	_ = viper.BindPFlag("project_dir", diffCmd.Flags().Lookup("project-dir"))
	_ = viper.BindPFlag("profiles_dir", diffCmd.Flags().Lookup("profiles-dir"))
	_ = viper.BindPFlag("profile", diffCmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("target", diffCmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("where", diffCmd.Flags().Lookup("where"))
	_ = viper.BindPFlag("sample", diffCmd.Flags().Lookup("sample"))
	_ = viper.BindPFlag("keep_schemas", diffCmd.Flags().Lookup("keep-schemas"))
	_ = viper.BindPFlag("col_stats", diffCmd.Flags().Lookup("col-stats"))
	_ = viper.BindPFlag("format", diffCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output", diffCmd.Flags().Lookup("output"))

	// Bind publish flags
	_ = viper.BindPFlag("publish", diffCmd.Flags().Lookup("publish"))
	_ = viper.BindPFlag("s3.endpoint", diffCmd.Flags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag("s3.bucket", diffCmd.Flags().Lookup("s3-bucket"))
	_ = viper.BindPFlag("s3.access_key", diffCmd.Flags().Lookup("s3-access-key"))
	_ = viper.BindPFlag("s3.secret_key", diffCmd.Flags().Lookup("s3-secret-key"))
	_ = viper.BindPFlag("s3.region", diffCmd.Flags().Lookup("s3-region"))
	_ = viper.BindPFlag("s3.key_template", diffCmd.Flags().Lookup("s3-key"))
	_ = viper.BindPFlag("compression", diffCmd.Flags().Lookup("compression"))
	_ = viper.BindPFlag("compression_level", diffCmd.Flags().Lookup("compression-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".model-diff")
		}
	}

	viper.SetEnvPrefix("MODELDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file is optional
	_ = viper.ReadInConfig()
}

// buildRunConfig assembles the merged configuration for one diff run.
func buildRunConfig(model string) *Config {
	keys := []string{}
	for _, k := range strings.Split(viper.GetString("keys"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	return &Config{
		Debug:     viper.GetBool("debug"),
		LogFormat: viper.GetString("log_format"),
		DryRun:    viper.GetBool("dry_run"),

		Model:       model,
		BaseRef:     viper.GetString("base"),
		HeadRef:     viper.GetString("head"),
		KeyColumns:  keys,
		Where:       viper.GetString("where"),
		Sample:      viper.GetInt("sample"),
		KeepSchemas: viper.GetBool("keep_schemas"),
		ColStats:    viper.GetBool("col_stats"),

		ProjectDir:  viper.GetString("project_dir"),
		ProfilesDir: viper.GetString("profiles_dir"),
		Profile:     viper.GetString("profile"),
		Target:      viper.GetString("target"),

		Format: strings.ToLower(strings.TrimSpace(viper.GetString("format"))),
		Output: viper.GetString("output"),

		Publish: PublishConfig{
			Enabled:          viper.GetBool("publish"),
			Endpoint:         viper.GetString("s3.endpoint"),
			Bucket:           viper.GetString("s3.bucket"),
			AccessKey:        viper.GetString("s3.access_key"),
			SecretKey:        viper.GetString("s3.secret_key"),
			Region:           viper.GetString("s3.region"),
			Key:              viper.GetString("s3.key_template"),
			Compression:      viper.GetString("compression"),
			CompressionLevel: viper.GetInt("compression_level"),
		},
	}
}
