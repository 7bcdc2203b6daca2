package reinforcement

/*
Tabular Q-learning with a decaying-noise greedy policy. A single goroutine owns the
loop: it resets the environment, picks noisy-greedy actions, steps, and blends each
Q(s,a) toward r + gamma*max_a' Q(s',a'). Per-episode reward totals feed the reports.

The bootstrap term is not masked at terminal transitions. Terminal states are never
updated, so their rows stay at zero and the unmasked target is equivalent.
*/

import (
	"context"
	"errors"
	"fmt"

	"frozenlake/environment"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidEnvironment is returned for environments with empty state or action spaces.
var ErrInvalidEnvironment = errors.New("invalid environment")

// ProgressFunc is called synchronously after an episode completes. It must not block
// for long, since training waits on it.
type ProgressFunc func(ctx context.Context, episode int)

// Snapshot is a point-in-time copy of the training state, for viewers.
type Snapshot struct {
	Episode int
	Values  *mat.Dense
	Report  Report
}

type Option func(*TrainingLoop)

// WithReporter sets the consumer of periodic reports. Reports are dropped if none is set.
func WithReporter(reporter Reporter) Option {
	return func(tl *TrainingLoop) {
		tl.reporter = reporter
	}
}

// WithProgress registers a hook called after every episode.
func WithProgress(progress ProgressFunc) Option {
	return func(tl *TrainingLoop) {
		tl.progress = progress
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(tl *TrainingLoop) {
		tl.logger = logger
	}
}

// TrainingLoop runs Q-learning episodes against an environment.
type TrainingLoop struct {
	cfg      Config
	env      environment.Environment
	table    *ValueTable
	policy   *NoisyGreedy
	history  *RewardHistory
	reporter Reporter
	progress ProgressFunc
	logger   zerolog.Logger
}

// NewTrainingLoop validates cfg and the environment's spaces and builds a zeroed
// table and the exploration policy drawing from rng.
func NewTrainingLoop(
	cfg Config,
	env environment.Environment,
	rng RandomSource,
	opts ...Option,
) (*TrainingLoop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidEnvironment)
	}

	table, err := NewValueTable(env.NumStates(), env.NumActions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvironment, err)
	}

	policy, err := NewNoisyGreedy(table, rng, cfg.NoiseDecayExponent)
	if err != nil {
		return nil, err
	}

	tl := &TrainingLoop{
		cfg:      cfg,
		env:      env,
		table:    table,
		policy:   policy,
		history:  NewRewardHistory(cfg.WindowSize),
		reporter: ReporterFunc(func(Report) {}),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tl)
	}
	return tl, nil
}

func (tl *TrainingLoop) Table() *ValueTable { return tl.table }

func (tl *TrainingLoop) History() *RewardHistory { return tl.history }

func (tl *TrainingLoop) Config() Config { return tl.cfg }

// Snapshot copies the current table and statistics. Safe to call from the progress hook.
func (tl *TrainingLoop) Snapshot(episode int) Snapshot {
	return Snapshot{
		Episode: episode,
		Values:  tl.table.Snapshot(),
		Report:  tl.history.Report(episode),
	}
}

// Run trains for the configured number of episodes and returns the reward history.
// Cancellation is observed between episodes: the final report is still emitted, and
// the partial history is returned with the context's error.
func (tl *TrainingLoop) Run(ctx context.Context) (*RewardHistory, error) {
	tl.logger.Info().
		Int("episodes", tl.cfg.Episodes).
		Float64("discount_factor", tl.cfg.DiscountFactor).
		Float64("learning_rate", tl.cfg.LearningRate).
		Float64("noise_decay_exponent", tl.cfg.NoiseDecayExponent).
		Int("states", tl.table.NumStates()).
		Int("actions", tl.table.NumActions()).
		Msg("Training started")

	for episode := 1; episode <= tl.cfg.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			tl.logger.Warn().Err(err).Int("episode", episode).Msg("Training stopped early")
			tl.reporter.Report(tl.history.Report(FinalEpisode))
			return tl.history, fmt.Errorf("training stopped before episode %d: %w", episode, err)
		}

		total, steps, err := tl.runEpisode(episode)
		if err != nil {
			return tl.history, fmt.Errorf("episode %d: %w", episode, err)
		}
		tl.history.Append(total)

		tl.logger.Debug().
			Int("episode", episode).
			Int("steps", steps).
			Float64("reward", total).
			Msg("Episode complete")

		if episode%tl.cfg.ReportInterval == 0 {
			tl.reporter.Report(tl.history.Report(episode))
		}
		if tl.progress != nil {
			tl.progress(ctx, episode)
		}
	}

	tl.reporter.Report(tl.history.Report(FinalEpisode))
	tl.logger.Info().
		Float64("mean", tl.history.Mean()).
		Float64("best_window_mean", tl.history.BestWindowMean()).
		Msg("Training complete")
	return tl.history, nil
}

// runEpisode plays one episode to termination, updating the table after every step.
// It returns the episode's total reward and its length.
func (tl *TrainingLoop) runEpisode(episode int) (total float64, steps int, err error) {
	state, err := tl.env.Reset()
	if err != nil {
		return 0, 0, fmt.Errorf("reset: %w", err)
	}

	for done := false; !done; steps++ {
		action := tl.policy.SelectAction(state, episode)

		var next int
		var reward float64
		next, reward, done, err = tl.env.Step(action)
		if err != nil {
			return total, steps, fmt.Errorf("step %d: %w", steps, err)
		}

		target := reward + tl.cfg.DiscountFactor*tl.table.MaxValue(next)
		tl.table.Update(state, action, target, tl.cfg.LearningRate)
		total += reward
		state = next
	}
	return total, steps, nil
}
