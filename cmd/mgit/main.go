package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/odvcencio/mgit/pkg/repo"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mgit:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mgit",
		Short:         "A minimal content-addressed version control system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobra.OnInitialize(initConfig)

	root.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("color", "auto", "colorize output: auto, always or never")
	root.PersistentFlags().Int("cache-size", -1, "object cache entries (default from .mgit/config)")

	viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("color", root.PersistentFlags().Lookup("color"))
	viper.BindPFlag("cache_size", root.PersistentFlags().Lookup("cache-size"))

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newConfigCmd(),
		newHashObjectCmd(),
		newCatFileCmd(),
		newUpdateIndexCmd(),
		newAddCmd(),
		newRmCmd(),
		newLsFilesCmd(),
		newWriteTreeCmd(),
		newCommitTreeCmd(),
		newUpdateRefCmd(),
		newCommitCmd(),
		newLogCmd(),
		newBranchCmd(),
		newTagCmd(),
		newCheckoutCmd(),
		newResetCmd(),
		newDiffCmd(),
		newStatusCmd(),
		newReflogCmd(),
		newVerifyObjectCmd(),
		newFsckCmd(),
		newPruneCmd(),
	)
	return root
}

func initConfig() {
	viper.SetEnvPrefix("MGIT")
	viper.AutomaticEnv()
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("color", "auto")
	viper.SetDefault("cache_size", -1)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mgit", version)
		},
	}
}

// newLogger builds the CLI logger: a development logger with --verbose,
// otherwise a production console logger at the configured level.
func newLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// openRepo opens the repository containing the working directory with the
// CLI's logger, cache size and identity overrides
// (MGIT_AUTHOR_NAME / MGIT_AUTHOR_EMAIL).
func openRepo() (*repo.Repo, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	r, err := repo.Open(".", repo.WithLogger(log), repo.WithCacheSize(viper.GetInt("cache_size")))
	if err != nil {
		return nil, err
	}
	if name := viper.GetString("author_name"); name != "" {
		r.Config.User.Name = name
	}
	if email := viper.GetString("author_email"); email != "" {
		r.Config.User.Email = email
	}
	return r, nil
}

// useColor reports whether output to w should be colorized.
func useColor(w io.Writer) bool {
	switch viper.GetString("color") {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
