package reinforcement

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultWindowSize is the number of trailing episodes averaged for convergence checks.
	DefaultWindowSize = 100
	// FinalEpisode marks the report emitted after the last episode.
	FinalEpisode = -1
)

// RewardHistory is the append-only sequence of episode rewards, in completion order,
// along with the best trailing-window mean seen so far.
type RewardHistory struct {
	rewards    []float64
	window     int
	bestWindow float64
	// true once at least one full window has been observed
	hasWindow bool
}

// NewRewardHistory returns an empty history averaging over window episodes.
func NewRewardHistory(window int) *RewardHistory {
	if window <= 0 {
		window = DefaultWindowSize
	}
	return &RewardHistory{window: window}
}

// Append records the total reward of a completed episode.
func (h *RewardHistory) Append(reward float64) {
	h.rewards = append(h.rewards, reward)
	if len(h.rewards) < h.window {
		return
	}
	// Each append completes exactly one new full window: the trailing one.
	mean := stat.Mean(h.rewards[len(h.rewards)-h.window:], nil)
	if !h.hasWindow || mean > h.bestWindow {
		h.bestWindow = mean
		h.hasWindow = true
	}
}

// Len is the number of completed episodes.
func (h *RewardHistory) Len() int { return len(h.rewards) }

// Window is the number of episodes averaged by RecentMean.
func (h *RewardHistory) Window() int { return h.window }

// Rewards returns a copy of the episode rewards.
func (h *RewardHistory) Rewards() []float64 {
	return append([]float64(nil), h.rewards...)
}

// RecentMean is the mean of the last Window rewards, or of all rewards if fewer
// episodes have completed. An empty history has mean 0.
func (h *RewardHistory) RecentMean() float64 {
	if len(h.rewards) == 0 {
		return 0
	}
	start := max(len(h.rewards)-h.window, 0)
	return stat.Mean(h.rewards[start:], nil)
}

// BestWindowMean is the largest mean over every full window observed so far. Until a
// full window exists, the partial history stands in as the only window.
func (h *RewardHistory) BestWindowMean() float64 {
	if !h.hasWindow {
		return h.RecentMean()
	}
	return h.bestWindow
}

// Mean is the mean reward over all episodes, or 0 if there are none.
func (h *RewardHistory) Mean() float64 {
	if len(h.rewards) == 0 {
		return 0
	}
	return stat.Mean(h.rewards, nil)
}

// Report summarizes the history as of the given episode.
func (h *RewardHistory) Report(episode int) Report {
	return Report{
		Window:         h.window,
		RecentMean:     h.RecentMean(),
		BestWindowMean: h.BestWindowMean(),
		Mean:           h.Mean(),
		Episode:        episode,
		Episodes:       len(h.rewards),
	}
}

// Report is the progress summary emitted periodically during training.
type Report struct {
	Window         int
	RecentMean     float64
	BestWindowMean float64
	Mean           float64
	// Episode is the triggering episode, or FinalEpisode after training.
	Episode int
	// Episodes is the number of episodes the statistics cover.
	Episodes int
}

// IsFinal reports whether this is the post-training report.
func (r Report) IsFinal() bool { return r.Episode == FinalEpisode }

// String formats the report as a single console line, e.g.
//
//	100-ep Average: 0.71 . Best 100-ep Average: 0.72 . Average: 0.44 (Episode 500)
func (r Report) String() string {
	return fmt.Sprintf("%d-ep Average: %.2f . Best %d-ep Average: %.2f . Average: %.2f (Episode %d)",
		r.Window, r.RecentMean, r.Window, r.BestWindowMean, r.Mean, r.Episode)
}
