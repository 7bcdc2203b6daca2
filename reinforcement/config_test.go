package reinforcement

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const trainingYaml = `kind: training
def:
  episodes: 2000
  report_interval: 250
  hyper_params:
    - key: discount_factor
      val: 0.95
    - key: learning_rate
      val: 0.5
  training_deadline:
    duration: 90s
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "training.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigValidate(t *testing.T) {
	Convey("When training constants are validated", t, func() {
		Convey("The defaults are valid", func() {
			So(DefaultConfig().Validate(), ShouldBeNil)
		})

		Convey("Boundary rates are valid", func() {
			cfg := DefaultConfig()
			cfg.DiscountFactor = 0
			cfg.LearningRate = 1
			cfg.NoiseDecayExponent = 0
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Non-finite values are rejected", func() {
			cfg := DefaultConfig()
			cfg.LearningRate = math.NaN()
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)

			cfg = DefaultConfig()
			cfg.NoiseDecayExponent = math.Inf(1)
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestTrainingSpec(t *testing.T) {
	Convey("When a training spec is loaded from yaml", t, func() {
		spec, err := FromYaml(writeConfig(t, trainingYaml))
		So(err, ShouldBeNil)

		Convey("Its fields and hyperparameters are decoded", func() {
			So(spec.Episodes, ShouldEqual, 2000)
			So(spec.ReportInterval, ShouldEqual, 250)
			So(spec.GetHyperParamOrDefault(DiscountFactorKey, 0), ShouldEqual, 0.95)
			So(spec.GetHyperParamOrDefault("missing", 7), ShouldEqual, 7.0)
		})

		Convey("It resolves over the defaults", func() {
			cfg, err := spec.Config()
			So(err, ShouldBeNil)
			So(cfg.Episodes, ShouldEqual, 2000)
			So(cfg.ReportInterval, ShouldEqual, 250)
			So(cfg.WindowSize, ShouldEqual, DefaultWindowSize)
			So(cfg.DiscountFactor, ShouldEqual, 0.95)
			So(cfg.LearningRate, ShouldEqual, 0.5)
			So(cfg.NoiseDecayExponent, ShouldEqual, 2.0)
		})

		Convey("Its deadline bounds the context", func() {
			ctx, cancel, err := spec.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(deadline, ShouldHappenWithin, 91*time.Second, time.Now())
		})
	})

	Convey("When a spec has no deadline", t, func() {
		spec := &TrainingSpec{}
		ctx, cancel, err := spec.WithTrainingDeadline(context.Background())
		So(err, ShouldBeNil)
		defer cancel()
		_, ok := ctx.Deadline()
		So(ok, ShouldBeFalse)

		Convey("It resolves to the defaults", func() {
			cfg, err := spec.Config()
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, DefaultConfig())
		})
	})

	Convey("When a spec is invalid", t, func() {
		Convey("Bad hyperparameters fail resolution", func() {
			spec := &TrainingSpec{HyperParams: []HyperParameter{{Key: LearningRateKey, Val: 2}}}
			_, err := spec.Config()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("A malformed deadline is an error", func() {
			spec := &TrainingSpec{TrainingDeadline: map[string]string{"duration": "soon"}}
			_, _, err := spec.WithTrainingDeadline(context.Background())
			So(err, ShouldNotBeNil)
		})

		Convey("A missing file is an error", func() {
			_, err := FromYaml(filepath.Join(t.TempDir(), "absent.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}
