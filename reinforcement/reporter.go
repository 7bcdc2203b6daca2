package reinforcement

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Reporter consumes the progress reports emitted by training.
type Reporter interface {
	Report(Report)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(Report)

func (fn ReporterFunc) Report(r Report) { fn(r) }

// TextReporter writes one formatted line per report.
type TextReporter struct {
	w io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (tr *TextReporter) Report(r Report) {
	fmt.Fprintln(tr.w, r.String())
}

// LogReporter emits reports as structured log events.
type LogReporter struct {
	logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (lr *LogReporter) Report(r Report) {
	lr.logger.Info().
		Str("metric", "training_report").
		Int("episode", r.Episode).
		Int("episodes", r.Episodes).
		Int("window", r.Window).
		Float64("recent_mean", r.RecentMean).
		Float64("best_window_mean", r.BestWindowMean).
		Float64("mean", r.Mean).
		Bool("final", r.IsFinal()).
		Msg("Training report")
}

// MultiReporter forwards each report to every reporter, in order.
type MultiReporter []Reporter

func (mr MultiReporter) Report(r Report) {
	for _, reporter := range mr {
		reporter.Report(r)
	}
}
