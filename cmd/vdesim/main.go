package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/observability"
	"github.com/san-kum/vdesim/internal/sim"
	"github.com/san-kum/vdesim/internal/storage"
)

var (
	configFile string
	dataDir    string
	backend    string
	logLevel   string
	logFormat  string

	preset     string
	controller string
	duration   float64
	seed       int64

	logger *zap.Logger
)

// main registers the command tree and exits with status 1 when a command
// fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "vdesim",
		Short:         "plasma vertical displacement simulator with LQR and NMPC feedback",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err = observability.NewLogger(cfg.Logger)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", ".vdesim", "run storage directory")
	pf.StringVar(&backend, "backend", "file", "run storage backend (file, sqlite)")
	pf.StringVar(&logLevel, "log-level", "info", "log level")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newTuneCmd(),
		newLiveCmd(),
		newListCmd(),
		newShowCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newPlotCmd(),
		newPNGCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// addRunFlags registers the flags shared by commands that simulate.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", config.DefaultPreset, "physics preset")
	cmd.Flags().StringVar(&controller, "controller", config.DefaultController, "controller ("+kindNames()+")")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration in seconds")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
}

// loadConfig starts from the defaults or the config file and applies only the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("preset") {
		phys, err := config.GetPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg.Preset, cfg.Physics = preset, phys
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("data") || configFile == "" {
		cfg.Storage.Dir = dataDir
	}
	if flags.Changed("backend") || configFile == "" {
		cfg.Storage.Backend = backend
	}
	if flags.Changed("log-level") {
		cfg.Logger.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logger.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSimulator(cfg *config.Config) (*sim.Simulator, control.Kind, error) {
	kind, err := control.ParseKind(cfg.Controller)
	if err != nil {
		return nil, 0, err
	}
	s, err := sim.New(cfg.Physics,
		sim.WithControllerConfig(cfg.Controllers),
		sim.WithLogger(logger),
	)
	if err != nil {
		return nil, 0, err
	}
	return s, kind, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	st, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("open %s store in %s: %w", cfg.Storage.Backend, cfg.Storage.Dir, err)
	}
	return st, nil
}

// loadRun reads a stored run and its history.
func loadRun(cmd *cobra.Command, runID string) (storage.RunMetadata, *sim.Result, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	defer st.Close()

	meta, err := st.Load(ctx, runID)
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	hist, err := st.LoadHistory(ctx, runID)
	if err != nil {
		return storage.RunMetadata{}, nil, err
	}
	return meta, &sim.Result{Metrics: meta.Metrics, History: hist}, nil
}
