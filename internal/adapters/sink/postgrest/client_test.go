package postgrest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/adapters/sink/postgrest"
	"github.com/okian/wastesync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInsert(t *testing.T) {
	ctx := context.Background()
	records := []model.Record{
		{FoodName: "Pizza", DisposalMass: 15.2, Location: "Lab", SessionID: "s1"},
		{FoodName: "Salad", DisposalMass: 8.7, SessionID: "s1"},
	}

	Convey("Given a PostgREST endpoint that accepts the insert", t, func() {
		var calls int32
		var got []map[string]any
		var header http.Header
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			header = r.Header.Clone()
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`[
				{"id": 41, "food_name": "Pizza", "disposal_mass": 15.2, "location": "Lab", "session_id": "s1", "created_at": "2025-01-02T03:04:05Z"},
				{"id": 42, "food_name": "Salad", "disposal_mass": 8.7, "location": null, "session_id": "s1", "created_at": "2025-01-02T03:04:05Z"}
			]`))
		}))
		defer srv.Close()

		c := postgrest.New(srv.URL+"/", "secret")
		stored, err := c.Insert(ctx, model.TableName, records)

		Convey("Then one request carries the whole batch", func() {
			So(err, ShouldBeNil)
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(1))
			So(path, ShouldEqual, "/rest/v1/food_waste")
			So(got, ShouldHaveLength, 2)
			So(got[0]["food_name"], ShouldEqual, "Pizza")
			So(got[1]["session_id"], ShouldEqual, "s1")
		})

		Convey("Then the key is sent in both auth headers", func() {
			So(header.Get("apikey"), ShouldEqual, "secret")
			So(header.Get("Authorization"), ShouldEqual, "Bearer secret")
			So(header.Get("Prefer"), ShouldEqual, "return=representation")
		})

		Convey("Then stored rows are returned", func() {
			So(stored, ShouldHaveLength, 2)
			So(stored[0].ID, ShouldEqual, "41")
			So(stored[1].Location, ShouldEqual, "")
			So(stored[0].CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given an endpoint that rejects the insert", t, func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"code": "PGRST000", "message": "database unavailable"}`))
		}))
		defer srv.Close()

		_, err := postgrest.New(srv.URL, "secret").Insert(ctx, model.TableName, records)

		Convey("Then the error is reported without retrying", func() {
			So(errors.Is(err, sink.ErrInsert), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "database unavailable")
			So(atomic.LoadInt32(&calls), ShouldEqual, int32(1))
		})
	})
}

func TestPingAndRecent(t *testing.T) {
	ctx := context.Background()

	Convey("Given a reachable endpoint", t, func() {
		var query map[string][]string
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id": "a1", "food_name": "Soup", "disposal_mass": 2, "session_id": "s", "created_at": "2025-01-02T03:04:05Z"}]`))
		}))
		defer srv.Close()
		c := postgrest.New(srv.URL, "secret")

		Convey("When pinging", func() {
			err := c.Ping(ctx, "waste_audit")

			Convey("Then one id is selected from the given table", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, "/waste_audit")
				So(query["select"], ShouldResemble, []string{"id"})
				So(query["limit"], ShouldResemble, []string{"1"})
			})
		})

		Convey("When reading recent rows", func() {
			since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			rows, err := c.Recent(ctx, model.TableName, since, 10)

			Convey("Then the filter and order are sent", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].ID, ShouldEqual, "a1")
				So(query["created_at"], ShouldResemble, []string{"gte.2025-01-01T00:00:00Z"})
				So(query["order"], ShouldResemble, []string{"created_at.desc"})
				So(query["limit"], ShouldResemble, []string{"10"})
			})
		})
	})

	Convey("Given an endpoint that refuses the key", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		err := postgrest.New(srv.URL, "bad").Ping(ctx, model.TableName)
		So(errors.Is(err, sink.ErrPing), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "401")
	})
}
