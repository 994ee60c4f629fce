package normalize

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionStrategies(t *testing.T) {
	Convey("Given the content strategy", t, func() {
		fn := ContentSession("analysis")

		Convey("Then map iteration order does not matter", func() {
			m := Mapping{}
			for _, k := range []string{"e", "d", "c", "b", "a"} {
				m[k] = 1.0
			}
			So(fn(m), ShouldEqual, fn(Mapping{"a": 1.0, "b": 1.0, "c": 1.0, "d": 1.0, "e": 1.0}))
		})

		Convey("Then different shapes with the same names differ", func() {
			So(fn(Masses{"a": 1}), ShouldNotEqual, fn(Items{{"a": 1.0}}))
		})

		Convey("Then the id is prefix plus 16 hex digits", func() {
			id := fn(Masses{"a": 1})
			So(id, ShouldStartWith, "analysis_")
			So(len(strings.TrimPrefix(id, "analysis_")), ShouldEqual, 16)
		})
	})

	Convey("Given the timestamp strategy", t, func() {
		fn := TimestampSession("run", func() time.Time { return time.Unix(1700000000, 0) })

		Convey("Then the id is the unix time", func() {
			So(fn(Masses{}), ShouldEqual, "run_1700000000")
		})
	})

	Convey("Given the random strategy", t, func() {
		fn := RandomSession("analysis")

		Convey("Then ids differ between calls", func() {
			So(fn(Masses{}), ShouldNotEqual, fn(Masses{}))
		})
	})

	Convey("Given strategy names", t, func() {
		for _, name := range []string{"", "content", "timestamp", "random"} {
			fn, err := SessionStrategy(name, "")
			So(err, ShouldBeNil)
			So(fn(Masses{"a": 1}), ShouldStartWith, DefaultSessionPrefix+"_")
		}
		_, err := SessionStrategy("sequential", "")
		So(err, ShouldNotBeNil)
	})
}
