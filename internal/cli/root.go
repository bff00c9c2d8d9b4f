// Package cli wires configuration, the planning client and the session
// controller into cobra commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pablasso/routeright/internal/config"
	"github.com/pablasso/routeright/internal/logging"
	"github.com/pablasso/routeright/internal/tui"
	"github.com/pablasso/routeright/internal/version"
)

// app is the state shared by every command of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.Config

	cfgFile string
	demo    bool
	lat     float64
	lng     float64

	// tuiRun starts the interactive program; replaced in tests.
	tuiRun func(ctx context.Context, opts tui.Options) error
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"api-url":   "api.base_url",
	"mode":      "dispatch.mode",
	"log-level": "logging.level",
	"log-file":  "logging.file",
	"metrics":   "metrics.addr",
	"preset":    "demo.preset",
	"scenario":  "demo.scenario",
	"streaming": "demo.streaming",
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: viper.New(), tuiRun: tui.Run})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "routeright",
		Short: "Plan an errand route from plain text",
		Long: `RouteRight turns a list of errands into an ordered route of nearby places.
Run without arguments to open the interactive planner.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: a.runTUI,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/routeright/config.yaml)")
	flags.String("api-url", "", "planning service base URL")
	flags.String("mode", "", "dispatch mode: auto|stream|synthetic")
	flags.Float64Var(&a.lat, "lat", 0, "latitude to plan from")
	flags.Float64Var(&a.lng, "lng", 0, "longitude to plan from")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-file", "", "log file (the interactive planner always logs to a file)")
	flags.String("metrics", "", "serve prometheus metrics on this address")
	flags.BoolVar(&a.demo, "demo", false, "use the built-in demo planning service")
	flags.String("preset", "", "demo pacing: quick|medium|slow")
	flags.String("scenario", "", "demo outcome: success|fail|malformed|invalid")
	flags.Bool("streaming", true, "demo service streams progress")

	for name, key := range flagKeys {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newPlanCmd(a),
		newFeedbackCmd(a),
		newHealthCmd(a),
		newDemoCmd(a),
	)
	return root
}

// loadConfig reads the config file and environment, then applies flags
// that viper cannot bind directly.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Coordinates are optional pointers in the config, so only explicit
	// flags may set them.
	flags := cmd.Flags()
	if flags.Changed("lat") {
		a.v.Set("location.lat", a.lat)
	}
	if flags.Changed("lng") {
		a.v.Set("location.lng", a.lng)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// logger opens the log for cmd. The interactive planner owns the terminal
// so it always logs to a file; other commands log to stderr unless a file
// is set by flag or config file.
// logger opens the log for cmd. Interactive runs always log to a file.
// Headless runs log to w unless a file is configured; there the level
// drops to warn unless one was chosen explicitly, so entries do not crowd
// the progress lines.
func (a *app) logger(cmd *cobra.Command, interactive bool, w io.Writer) (*logging.Logger, error) {
	path := ""
	if interactive || cmd.Flags().Changed("log-file") || a.v.InConfig("logging.file") {
		path = a.cfg.Logging.File
	}
	level := a.cfg.Logging.Level
	if path == "" && !a.levelChosen(cmd) {
		level = logging.LevelWarn
	}
	return logging.New(path, level, w)
}

func (a *app) levelChosen(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("log-level") || a.v.InConfig("logging.level") {
		return true
	}
	_, ok := os.LookupEnv(config.EnvPrefix + "_LOGGING_LEVEL")
	return ok
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	return a.withRuntime(cmd, true, func(ctx context.Context, rt *runtime, logger *logging.Logger) error {
		logger.Info("starting interactive planner", "api", rt.baseURL, "mode", a.cfg.Dispatch.Mode, "demo", a.demo)
		return a.tuiRun(ctx, tui.Options{
			Generator: rt.controller,
			Locator:   rt.locator,
			Feedback:  rt.feedback,
			Health:    rt.client,
			Logger:    logger,
		})
	})
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
