package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/wastesync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// isolate points every file source at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDotEnvFile, filepath.Join(dir, "missing.env"))
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	convey.Convey("Given no configuration sources", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
		})
	})
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("WASTESYNC_ADDR", ":8080")
	t.Setenv("WASTESYNC_QUEUE_SIZE", "64")
	t.Setenv("WASTESYNC_DRY_RUN", "true")
	t.Setenv("WASTESYNC_TIMEOUT", "3s")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("COLLECTOR_URL", "otel:4317")

	convey.Convey("Given environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then they override defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.DryRun, convey.ShouldBeTrue)
			convey.So(cfg.Timeout, convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.SupabaseURL, convey.ShouldEqual, "https://abc.supabase.co")
			convey.So(cfg.SupabaseKey, convey.ShouldEqual, "anon")
			convey.So(cfg.CollectorURL, convey.ShouldEqual, "otel:4317")
		})
	})
}

func TestLoad_PrefixedWins(t *testing.T) {
	isolate(t)
	t.Setenv("SUPABASE_URL", "https://plain.supabase.co")
	t.Setenv("WASTESYNC_SUPABASE_URL", "https://prefixed.supabase.co")

	convey.Convey("Given both spellings of a credential", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.SupabaseURL, convey.ShouldEqual, "https://prefixed.supabase.co")
	})
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "wastesync.yaml", `
addr: ":9090"
sink: memory
worker_count: 3
default_location: "Dining Hall"
`)
	t.Setenv(config.EnvConfigFile, path)
	t.Setenv("WASTESYNC_WORKER_COUNT", "7")

	convey.Convey("Given a YAML file and an env override", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then the file applies and env wins over it", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.Sink, convey.ShouldEqual, config.SinkMemory)
			convey.So(cfg.DefaultLocation, convey.ShouldEqual, "Dining Hall")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 7)
		})
	})
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, ".env", "WASTESYNC_TEST_DOTENV_TABLE=food_waste_test\n")
	t.Setenv(config.EnvDotEnvFile, path)
	t.Cleanup(func() { _ = os.Unsetenv("WASTESYNC_TEST_DOTENV_TABLE") })

	convey.Convey("Given a .env file", t, func() {
		_, err := config.Load(context.Background())

		convey.Convey("Then its variables are exported to the process", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(os.Getenv("WASTESYNC_TEST_DOTENV_TABLE"), convey.ShouldEqual, "food_waste_test")
		})
	})
}

func TestLoad_Errors(t *testing.T) {
	convey.Convey("Given a missing config file", t, func() {
		isolate(t)
		t.Setenv(config.EnvConfigFile, "/non/existent/file.yaml")
		_, err := config.Load(context.Background())
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})

	convey.Convey("Given an empty address", t, func() {
		isolate(t)
		t.Setenv("WASTESYNC_ADDR", "")
		_, err := config.Load(context.Background())
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})

	convey.Convey("Given a number that does not parse", t, func() {
		isolate(t)
		t.Setenv("WASTESYNC_QUEUE_SIZE", "lots")
		_, err := config.Load(context.Background())
		convey.So(err, convey.ShouldNotBeNil)
	})
}
