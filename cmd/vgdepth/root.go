package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vgkit/vgdepth/pkg/config"
)

// usesConfig marks commands whose unset flags are filled from the config file.
const usesConfig = "vgdepth/config"

var (
	verbose    bool
	quiet      bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "vgdepth",
	Short: "vgdepth - coverage depth over pangenome variation graphs",
	Long: `vgdepth reports how many path steps, and how many distinct paths, cover
nodes, path positions and path intervals of a variation graph in GFA format.

Graphs may be gzip, zstd or xz compressed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with default flag values (or $"+config.EnvPath+")")

	// Add subcommands
	rootCmd.AddCommand(depthCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the config file, fills unset flags from it and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Annotations[usesConfig] == "true" {
		if err := applyConfig(cmd.Flags(), cfg); err != nil {
			return err
		}
	}

	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(cfg.Level())
	}
	return nil
}

// applyConfig copies config values into flags the user did not set.
// Flags the command does not define are skipped.
func applyConfig(flags *pflag.FlagSet, cfg config.Config) error {
	values := map[string]string{
		"threads":        strconv.Itoa(cfg.Threads),
		"format":         cfg.Format,
		"self-exclusion": cfg.SelfExclusion,
		"metrics-file":   cfg.MetricsFile,
		"db":             cfg.Output,
	}
	for name, value := range values {
		f := flags.Lookup(name)
		if f == nil || f.Changed || value == "" {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
