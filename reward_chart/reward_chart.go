// Package reward_chart plots episode rewards as an html line chart.
package reward_chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

var ErrNoRewards = errors.New("no rewards to chart")

// TrailingMeans returns, for each episode, the mean reward of the last window episodes
// up to and including it (fewer at the start of the history).
func TrailingMeans(rewards []float64, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	means := make([]float64, len(rewards))
	for i := range rewards {
		start := max(i+1-window, 0)
		means[i] = stat.Mean(rewards[start:i+1], nil)
	}
	return means
}

func lineData(vals []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(vals))
	for _, val := range vals {
		items = append(items, opts.LineData{Value: val})
	}
	return items
}

// Render writes a page with the per-episode rewards and their trailing window mean.
func Render(w io.Writer, rewards []float64, window int) error {
	if len(rewards) == 0 {
		return ErrNoRewards
	}

	episodes := make([]string, len(rewards))
	for i := range rewards {
		episodes[i] = strconv.Itoa(i + 1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "FrozenLake training rewards",
			Subtitle: fmt.Sprintf("%d episodes", len(rewards)),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reward"}),
	)

	line.SetXAxis(episodes).
		AddSeries("reward", lineData(rewards)).
		AddSeries(fmt.Sprintf("%d-ep mean", window), lineData(TrailingMeans(rewards, window)))

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}

// WriteFile renders the chart to path, creating its directory if needed.
func WriteFile(path string, rewards []float64, window int) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("chart directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := Render(f, rewards, window); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
