package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(3))

		Convey("A new id is recorded once", func() {
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Unrecord allows the id again", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("Unrecording an unknown id is a no-op", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("The oldest id is evicted at capacity", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper(WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprint(i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "0"), ShouldBeTrue)
	})

	Convey("Given concurrent callers with the same id", t, func() {
		ctx := context.Background()
		d := NewInMemoryDeduper()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "session") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Exactly one records it", func() {
			So(fresh.Load(), ShouldEqual, int32(1))
		})
	})
}
