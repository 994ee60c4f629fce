package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/wastesync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Sink, convey.ShouldEqual, config.SinkPostgREST)
			convey.So(cfg.Table, convey.ShouldEqual, "food_waste")
			convey.So(cfg.DefaultLocation, convey.ShouldEqual, "Analysis")
			convey.So(cfg.SessionStrategy, convey.ShouldEqual, "content")
			convey.So(cfg.Timeout, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the shipped credentials are recognised as placeholders", func() {
			convey.So(cfg.HasPlaceholderCredentials(), convey.ShouldBeTrue)
			cfg.SupabaseURL = "https://abc.supabase.co"
			cfg.SupabaseKey = "key"
			convey.So(cfg.HasPlaceholderCredentials(), convey.ShouldBeFalse)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs that break a constraint", t, func() {
		ctx := context.Background()

		convey.Convey("Then an unknown sink is rejected", func() {
			cfg := config.New(ctx)
			cfg.Sink = "kafka"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Then the postgres sink needs a DSN", func() {
			cfg := config.New(ctx)
			cfg.Sink = config.SinkPostgres
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "postgresdsn")
		})

		convey.Convey("Then the memory sink needs no credentials", func() {
			cfg := config.New(ctx)
			cfg.Sink = config.SinkMemory
			cfg.SupabaseURL = ""
			cfg.SupabaseKey = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then an unknown session strategy is rejected", func() {
			cfg := config.New(ctx)
			cfg.SessionStrategy = "sequential"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
