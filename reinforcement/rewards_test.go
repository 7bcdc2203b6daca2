package reinforcement

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRewardHistory(t *testing.T) {
	Convey("When rewards are recorded", t, func() {
		Convey("An empty history reports neutral values", func() {
			h := NewRewardHistory(100)
			So(h.Len(), ShouldEqual, 0)
			So(h.RecentMean(), ShouldEqual, 0.0)
			So(h.BestWindowMean(), ShouldEqual, 0.0)
			So(h.Mean(), ShouldEqual, 0.0)
		})

		Convey("A non-positive window falls back to the default", func() {
			So(NewRewardHistory(0).Window(), ShouldEqual, DefaultWindowSize)
			So(NewRewardHistory(-3).Window(), ShouldEqual, DefaultWindowSize)
		})

		Convey("A short history is averaged whole", func() {
			h := NewRewardHistory(100)
			for _, r := range []float64{1, 0, 1, 1, 0} {
				h.Append(r)
			}
			So(h.Len(), ShouldEqual, 5)
			So(h.RecentMean(), ShouldAlmostEqual, 0.6)
			So(h.BestWindowMean(), ShouldAlmostEqual, 0.6)
			So(h.Mean(), ShouldAlmostEqual, 0.6)
		})

		Convey("Rewards are kept in completion order", func() {
			h := NewRewardHistory(2)
			h.Append(3)
			h.Append(1)
			h.Append(2)
			rewards := h.Rewards()
			So(rewards, ShouldResemble, []float64{3, 1, 2})
			rewards[0] = 0
			So(h.Rewards()[0], ShouldEqual, 3.0)
		})

		Convey("The best window covers every full window, including the latest", func() {
			h := NewRewardHistory(3)
			for _, r := range []float64{0, 0, 0, 1, 0, 0, 1, 1, 1} {
				h.Append(r)
			}
			So(h.RecentMean(), ShouldEqual, 1.0)
			So(h.BestWindowMean(), ShouldEqual, 1.0)
			So(h.Mean(), ShouldAlmostEqual, 4.0/9.0)
		})

		Convey("The best window is kept after performance drops", func() {
			h := NewRewardHistory(2)
			for _, r := range []float64{1, 1, 0, 0, 0} {
				h.Append(r)
			}
			So(h.RecentMean(), ShouldEqual, 0.0)
			So(h.BestWindowMean(), ShouldEqual, 1.0)
			So(h.Mean(), ShouldAlmostEqual, 0.4)
		})

		Convey("A report captures the statistics at an episode", func() {
			h := NewRewardHistory(100)
			for _, r := range []float64{1, 0, 1, 1, 0} {
				h.Append(r)
			}
			r := h.Report(5)
			So(r.Episode, ShouldEqual, 5)
			So(r.Episodes, ShouldEqual, 5)
			So(r.IsFinal(), ShouldBeFalse)
			So(r.String(), ShouldEqual,
				"100-ep Average: 0.60 . Best 100-ep Average: 0.60 . Average: 0.60 (Episode 5)")
			So(h.Report(FinalEpisode).IsFinal(), ShouldBeTrue)
		})
	})
}

func TestReporters(t *testing.T) {
	Convey("When reports are emitted", t, func() {
		report := Report{Window: 100, RecentMean: 0.71, BestWindowMean: 0.72, Mean: 0.44, Episode: 500}

		Convey("The text reporter writes the console line", func() {
			var buf bytes.Buffer
			NewTextReporter(&buf).Report(report)
			So(buf.String(), ShouldEqual,
				"100-ep Average: 0.71 . Best 100-ep Average: 0.72 . Average: 0.44 (Episode 500)\n")
		})

		Convey("The multi reporter fans out in order", func() {
			var seen []string
			mr := MultiReporter{
				ReporterFunc(func(Report) { seen = append(seen, "first") }),
				ReporterFunc(func(Report) { seen = append(seen, "second") }),
			}
			mr.Report(report)
			So(seen, ShouldResemble, []string{"first", "second"})
		})
	})
}
