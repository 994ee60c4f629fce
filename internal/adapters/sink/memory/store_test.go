package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wastesync/internal/adapters/sink/memory"
	"github.com/okian/wastesync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a controllable clock", t, func() {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		s := memory.New(memory.WithClock(func() time.Time { return now }))

		_, err := s.Insert(ctx, model.TableName, []model.Record{{FoodName: "Pizza", DisposalMass: 1, SessionID: "a"}})
		So(err, ShouldBeNil)
		now = now.Add(time.Hour)
		stored, err := s.Insert(ctx, model.TableName, []model.Record{
			{FoodName: "Soup", DisposalMass: 2, SessionID: "b"},
			{FoodName: "Rice", DisposalMass: 3, SessionID: "b"},
		})
		So(err, ShouldBeNil)

		Convey("Then ids are sequential across batches", func() {
			So(stored[0].ID, ShouldEqual, "2")
			So(stored[1].ID, ShouldEqual, "3")
			So(s.Calls(), ShouldEqual, 2)
			So(s.Rows(model.TableName), ShouldHaveLength, 3)
		})

		Convey("Then recent rows honour since and limit", func() {
			rows, err := s.Recent(ctx, model.TableName, now, 0)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].FoodName, ShouldEqual, "Rice")

			rows, _ = s.Recent(ctx, model.TableName, time.Time{}, 1)
			So(rows, ShouldHaveLength, 1)
		})

		Convey("Then an injected failure is returned", func() {
			boom := errors.New("boom")
			s.SetFailure(boom)
			_, err := s.Insert(ctx, model.TableName, nil)
			So(err, ShouldEqual, boom)
			So(s.Ping(ctx, model.TableName), ShouldEqual, boom)
		})
	})
}
