package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/happyhackingspace/rapgen"
	"github.com/happyhackingspace/rapgen/internal/banner"
	"github.com/happyhackingspace/rapgen/internal/config"
	"github.com/spf13/cobra"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	configPath  string
	cfg         config.Config
	initialized bool
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version, cfg: config.Defaults()}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:     "rapgen",
		Short:   "Rhyming lyric generator for Japanese readings",
		Version: c.version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.initApp()
			return c.loadConfig()
		},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging and banner")
	c.rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to YAML config file")

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(c.newTrainCommand())
	c.rootCmd.AddCommand(c.newRunCommand())
	c.rootCmd.AddCommand(c.newRhymeCommand())
	c.rootCmd.AddCommand(c.newEvaluateCommand())
	c.rootCmd.AddCommand(c.newUpCommand())
	c.rootCmd.AddCommand(c.newDataCommand())
}

// Run executes the CLI and returns any error.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

// initApp initializes logging and prints the banner.
func (c *CLI) initApp() {
	if c.initialized {
		return
	}
	c.initialized = true

	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	if c.silent {
		level = slog.Level(100)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
	if !c.silent {
		fmt.Fprint(os.Stderr, banner.Banner(c.version))
	}
}

// loadConfig reads the config file when given, then RAPGEN_* variables.
func (c *CLI) loadConfig() error {
	cfg := config.Defaults()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath, nil); err != nil {
			return err
		}
		slog.Debug("Config loaded", "path", c.configPath)
	}
	cfg, err := config.EnvOverlay(cfg, os.Environ())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// generatorOptions maps the generate settings onto generator options.
func (c *CLI) generatorOptions() []rapgen.Option {
	g := c.cfg.Generate
	return []rapgen.Option{
		rapgen.WithBeamWidth(g.BeamWidth),
		rapgen.WithCacheSize(g.CacheSize),
		rapgen.WithConcurrency(g.Concurrency),
		rapgen.WithSeed(g.Seed),
	}
}

// trainConfig maps the train settings, letting explicitly set flags win.
func (c *CLI) trainConfig(cmd *cobra.Command, epochs int, shuffle bool) rapgen.TrainConfig {
	t := c.cfg.Train
	cfg := rapgen.TrainConfig{
		Epochs:      t.Epochs,
		Capacity:    t.Capacity,
		DefaultCost: t.DefaultCost,
		Shuffle:     t.Shuffle,
		Seed:        t.Seed,
		Verbose:     c.verbose,
	}
	if cmd.Flags().Changed("epochs") {
		cfg.Epochs = epochs
	}
	if cmd.Flags().Changed("shuffle") {
		cfg.Shuffle = shuffle
	}
	return cfg
}

// nBest returns the --count flag when set, else the configured n_best.
func (c *CLI) nBest(cmd *cobra.Command, flag int) int {
	if cmd.Flags().Changed("count") {
		return flag
	}
	return c.cfg.Generate.NBest
}

// dataFolder returns the flag value when set, else the configured folder.
func (c *CLI) dataFolder(cmd *cobra.Command, flag string) string {
	if cmd.Flags().Changed("data-folder") {
		return flag
	}
	return c.cfg.DataDir
}
