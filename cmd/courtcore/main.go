// Command courtcore runs maintenance tasks against the booking store:
// slot generation, slot purging, consistency repair and integrity audits.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"courtcore/internal/blob"
	"courtcore/internal/config"
	"courtcore/internal/core"
	"courtcore/internal/events"
	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

var exitFunc = os.Exit

const usage = `usage: courtcore <command> [flags]

commands:
  generate  create hourly slots for every court (-from YYYY-MM-DD -days N)
  purge     remove unbooked slots in a date range (-from -to)
  repair    re-derive slot flags (-orphans cancels reservations of missing slots)
  audit     run the integrity rules and archive the report
  stats     print record counts
`

func main() {
	_ = godotenv.Load(".env")
	code := cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	svc, closeFn, err := open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open service", "error", err)
		return 1
	}
	defer closeFn()

	if err := dispatch(ctx, svc, args[0], args[1:], stdout, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			return 2
		}
		logger.Error("command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

// open wires the store, archive, publisher and observability hooks from cfg.
func open(ctx context.Context, cfg config.App, logger *slog.Logger) (*core.Service, func(), error) {
	hours, err := cfg.OperatingHours()
	if err != nil {
		return nil, nil, err
	}
	store, err := core.OpenStore(ctx, cfg.Storage(), repository.WithCache(cfg.Cache()))
	if err != nil {
		return nil, nil, err
	}
	archive, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqp, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("events disabled", "error", err)
		} else {
			publisher = amqp
		}
	}
	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithAuditRecorder(core.NewSlogAuditRecorder(logger)),
		core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")),
		core.WithTracer(core.NewOTelTracer(otel.GetTracerProvider())),
		core.WithPublisher(publisher),
		core.WithArchive(archive),
		core.WithOperatingHours(hours),
	)
	closeFn := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close publisher", "error", err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}
	return svc, closeFn, nil
}

func dispatch(ctx context.Context, svc *core.Service, cmd string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	switch cmd {
	case "generate":
		from := fs.String("from", time.Now().UTC().Format(domain.DateLayout), "first date (YYYY-MM-DD)")
		days := fs.Int("days", 7, "number of days")
		if err := fs.Parse(args); err != nil {
			return err
		}
		start, err := domain.ParseDate(*from)
		if err != nil {
			return err
		}
		return emit(stdout, svc.GenerateSlots(ctx, start, *days))
	case "purge":
		from := fs.String("from", "", "first date (YYYY-MM-DD)")
		to := fs.String("to", "", "last date (YYYY-MM-DD)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return emit(stdout, svc.PurgeRange(ctx, *from, *to))
	case "repair":
		orphans := fs.Bool("orphans", false, "cancel reservations whose slot is missing")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return emit(stdout, svc.RepairConsistency(ctx, core.ConsistencyOptions{RepairOrphans: *orphans}))
	case "audit":
		if err := fs.Parse(args); err != nil {
			return err
		}
		out := svc.AuditIntegrity(ctx)
		if err := emit(stdout, out); err != nil {
			return err
		}
		if !out.Data.Report.Healthy() {
			return fmt.Errorf("integrity audit found %d errors", len(out.Data.Report.Errors))
		}
		return nil
	case "stats":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return writeJSON(stdout, svc.Stats())
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return errUsage
	}
}

// emit prints an outcome and turns a failed one into an error.
func emit[T any](w io.Writer, out core.Outcome[T]) error {
	if err := writeJSON(w, out); err != nil {
		return err
	}
	_, err := out.Unwrap()
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
