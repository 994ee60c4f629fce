// Command send normalizes observation files and syncs each one as a batch.
//
//	send [flags] file.json|file.csv|- ...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/wastesync/internal/app"
	"github.com/okian/wastesync/internal/bootstrap"
	"github.com/okian/wastesync/internal/config"
	"github.com/okian/wastesync/internal/ingest"
	"github.com/okian/wastesync/pkg/logger"
)

var errUsage = errors.New("no input files")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		os.Stderr.WriteString("send: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	var (
		location   = fs.String("location", "", "Location for records without one (default from config)")
		sessionID  = fs.String("session", "", "Session id for every batch (generated when empty)")
		dryRun     = fs.Bool("dry-run", false, "Normalize and report without inserting")
		testConn   = fs.Bool("test-connection", false, "Ping the sink and exit")
		nameColumn = fs.String("name-column", "", "CSV column holding the food name")
		massColumn = fs.String("mass-column", "", "CSV column holding the disposal mass")
		locColumn  = fs.String("location-column", "", "CSV column holding the location")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if err := bootstrap.Logger(cfg); err != nil {
		return err
	}
	log := logger.Get().Named("send")

	svc, closeSink, err := bootstrap.Service(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	if *testConn {
		if err := svc.TestConnection(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "connection ok")
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	csvOpts := []ingest.CSVOption{ingest.WithColumns(*nameColumn, *massColumn, *locColumn)}
	enc := json.NewEncoder(stdout)
	var failed int
	for _, path := range fs.Args() {
		obs, err := read(path, stdin, csvOpts)
		if err != nil {
			log.Error(ctx, "read failed", logger.String("file", path), logger.Error(err))
			failed++
			continue
		}
		res, err := svc.Sync(ctx, obs, service.WithLocation(*location), service.WithSessionID(*sessionID))
		if err != nil {
			log.Error(ctx, "sync failed", logger.String("file", path), logger.Error(err))
			failed++
			continue
		}
		if err := enc.Encode(struct {
			File string `json:"file"`
			service.Result
		}{path, res}); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func read(path string, stdin io.Reader, opts []ingest.CSVOption) (any, error) {
	if path == "-" {
		return ingest.DecodeJSON(stdin)
	}
	return ingest.ReadFile(path, opts...)
}
