/*
Frozenlake trains a tabular Q-learning agent on the FrozenLake grid: the agent must cross a
frozen lake from S to G without falling into a hole H, while the ice may slip it sideways.
Exploration comes from uniform noise added to the action values, shrinking with the square of
the episode index. Progress is reported every few hundred episodes, and the learned values can
be watched live in a browser while training runs (--serve).
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frozenlake/config"
	"frozenlake/environment"
	"frozenlake/reinforcement"
	"frozenlake/reward_chart"
	"frozenlake/server"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/seehuhn/mt19937"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// An agent whose recent average reward exceeds this has learned to cross the lake.
const solvedThreshold = 0.75

var settings = config.Default()

var rootCmd = &cobra.Command{
	Use:   "frozenlake",
	Short: "Tabular Q-learning on the FrozenLake grid",
	Long: `Trains a Q-learning agent on FrozenLake and reports its average rewards.

Settings come from flags, FROZENLAKE_* environment variables, or a .env file.
Training constants (episodes, discount factor, learning rate, deadline) come
from an optional yaml file passed with --config.`,
	RunE:         runApp,
	SilenceUsage: true,
}

func init() {
	config.RegisterFlags(rootCmd.Flags(), settings)
}

// newSource returns a Mersenne Twister generator, so runs are reproducible per seed.
func newSource(seed uint64) *rand.Rand {
	src := mt19937.New()
	src.Seed(int64(seed))
	return rand.New(src)
}

func newLogger(w io.Writer, cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !cfg.Color}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger(), nil
}

func newLake(cfg *config.Config) (*environment.FrozenLake, error) {
	opts := []environment.Option{
		environment.WithSlippery(cfg.Slippery),
		environment.WithRand(newSource(cfg.EnvSeed)),
	}
	if cfg.MaxSteps > 0 {
		opts = append(opts, environment.WithMaxSteps(cfg.MaxSteps))
	}
	return environment.NewNamedLake(cfg.Map, opts...)
}

// loadTraining reads the training spec, if any, and resolves the training constants.
func loadTraining(cfg *config.Config) (*reinforcement.TrainingSpec, reinforcement.Config, error) {
	spec := &reinforcement.TrainingSpec{}
	if cfg.TrainingFile != "" {
		var err error
		if spec, err = reinforcement.FromYaml(cfg.TrainingFile); err != nil {
			return nil, reinforcement.Config{}, err
		}
	}
	if cfg.Episodes > 0 {
		spec.Episodes = cfg.Episodes
	}

	trainCfg, err := spec.Config()
	if err != nil {
		return nil, reinforcement.Config{}, err
	}
	return spec, trainCfg, nil
}

// snapshotInterval is how often, in episodes, the live view is offered a snapshot.
func snapshotInterval(trainCfg reinforcement.Config) int {
	return max(trainCfg.ReportInterval/10, 1)
}

// offerSnapshot hands snap to the live view without blocking. A snapshot the view has
// not taken yet is replaced, so the view always catches up to the latest one.
func offerSnapshot(snapshots chan reinforcement.Snapshot, snap reinforcement.Snapshot) {
	for {
		select {
		case snapshots <- snap:
			return
		default:
		}
		select {
		case <-snapshots:
		default:
		}
	}
}

// publishProgress offers a snapshot every n episodes, so training never waits on a viewer.
func publishProgress(
	snapshot func(episode int) reinforcement.Snapshot,
	snapshots chan reinforcement.Snapshot,
	n int,
) reinforcement.ProgressFunc {
	return func(ctx context.Context, episode int) {
		if episode%n != 0 {
			return
		}
		offerSnapshot(snapshots, snapshot(episode))
	}
}

// loadDotEnv adds the variables in path to the environment. A missing file is fine,
// since flags and the environment still apply; a malformed one is an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func runApp(cmd *cobra.Command, _ []string) (err error) {
	if err = loadDotEnv(".env"); err != nil {
		return
	}

	vp := viper.New()
	if err = config.Bind(vp, cmd.Flags()); err != nil {
		return
	}
	var cfg *config.Config
	if cfg, err = config.Load(vp); err != nil {
		return
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return
	}
	log.Logger = logger

	spec, trainCfg, err := loadTraining(cfg)
	if err != nil {
		return
	}
	lake, err := newLake(cfg)
	if err != nil {
		return
	}

	appCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	renderer := environment.NewRenderer(out, cfg.Color)
	renderer.ShowGrid(lake)

	snapshots := make(chan reinforcement.Snapshot, 1)
	var loop *reinforcement.TrainingLoop
	opts := []reinforcement.Option{
		reinforcement.WithLogger(logger),
		reinforcement.WithReporter(reinforcement.MultiReporter{
			reinforcement.NewTextReporter(out),
			reinforcement.NewLogReporter(logger),
		}),
	}
	if cfg.Serve {
		opts = append(opts, reinforcement.WithProgress(publishProgress(
			func(episode int) reinforcement.Snapshot { return loop.Snapshot(episode) },
			snapshots,
			snapshotInterval(trainCfg))))
	}

	if loop, err = reinforcement.NewTrainingLoop(trainCfg, lake, newSource(cfg.Seed), opts...); err != nil {
		return
	}

	logger.Info().
		Str("map", cfg.Map).
		Bool("slippery", lake.Slippery()).
		Int("max_steps", lake.MaxSteps()).
		Uint64("seed", cfg.Seed).
		Uint64("env_seed", cfg.EnvSeed).
		Msg("Lake ready")

	group, groupCtx := errgroup.WithContext(appCtx)

	if cfg.Serve {
		var srv *server.Server
		if srv, err = server.NewServer(groupCtx, cfg.Addr, lake, loop.Table(), snapshots); err != nil {
			return
		}
		group.Go(func() error {
			return srv.Serve(groupCtx)
		})
	}

	group.Go(func() error {
		trainCtx, cancel, err := spec.WithTrainingDeadline(groupCtx)
		if err != nil {
			return err
		}
		defer cancel()

		history, err := loop.Run(trainCtx)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn().Int("episodes", history.Len()).Msg("Training deadline reached")
		case errors.Is(err, context.Canceled):
			logger.Warn().Int("episodes", history.Len()).Msg("Training interrupted")
		case err != nil:
			return err
		}

		logger.Info().
			Bool("solved", history.Len() > 0 && history.RecentMean() > solvedThreshold).
			Float64("recent_mean", history.RecentMean()).
			Msg("Training finished")

		if cfg.ShowPolicy {
			renderer.ShowPolicy(lake, loop.Table())
			renderer.ShowMaxValues(lake, loop.Table())
		}
		if cfg.ChartFile != "" && history.Len() > 0 {
			if err := reward_chart.WriteFile(cfg.ChartFile, history.Rewards(), trainCfg.WindowSize); err != nil {
				return err
			}
			logger.Info().Str("path", cfg.ChartFile).Msg("Reward chart written")
		}

		if cfg.Serve && groupCtx.Err() == nil {
			offerSnapshot(snapshots, loop.Snapshot(history.Len()))
			logger.Info().Str("addr", cfg.Addr).Msg("Serving final values until interrupted")
		}
		return nil
	})

	return group.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
