package atomic_float

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicFloat64(t *testing.T) {
	Convey("When an AtomicFloat64 is declared", t, func() {
		Convey("Its zero value reads as zero", func() {
			var af AtomicFloat64
			So(af.AtomicRead(), ShouldEqual, 0.0)
		})

		Convey("AtomicSet overwrites the value", func() {
			var af AtomicFloat64
			af.AtomicSet(1.0)
			af.AtomicSet(0.125)
			So(af.AtomicRead(), ShouldEqual, 0.125)
		})

		Convey("A slice of them needs no initialization", func() {
			vals := make([]AtomicFloat64, 4)
			vals[2].AtomicSet(-2.5)
			So(vals[0].AtomicRead(), ShouldEqual, 0.0)
			So(vals[2].AtomicRead(), ShouldEqual, -2.5)
		})
	})
}

func TestConcurrentReads(t *testing.T) {
	Convey("When a reader runs alongside the single writer", t, func() {
		var af AtomicFloat64
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 1; i <= 1000; i++ {
				af.AtomicSet(float64(i))
			}
		}()

		last, monotonic := 0.0, true
		for running := true; running; {
			select {
			case <-done:
				running = false
			default:
			}
			val := af.AtomicRead()
			if val < last {
				monotonic = false
			}
			last = val
		}

		Convey("It observes only whole values, in write order", func() {
			So(monotonic, ShouldBeTrue)
			So(af.AtomicRead(), ShouldEqual, 1000.0)
		})
	})
}
