// Command points computes season points offline.
//
//	points -ranks "5::12:"
//	points 5 "" 12
//	points -rank 100
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/seasonpoints/internal/adapters/storage"
	service "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/domain/model"
	"github.com/okian/seasonpoints/internal/domain/scoring"
	"github.com/okian/seasonpoints/pkg/logger"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errNoRanks = errors.New("no ranks given")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("points", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		ranks   = flags.String("ranks", "", `Serialized ranks, e.g. "5::12:"`)
		rank    = flags.Int("rank", 0, "Score a single rank")
		slots   = flags.Int("slots", service.DefaultSlots, "Number of rank slots")
		verbose = flags.Bool("verbose", false, "Enable debug logging")
	)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: points [-slots N] [-verbose] (-rank N | -ranks SERIALIZED | RANK...)")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if err := logger.Init(logger.WithOutput(stderr)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return exitError
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	} else {
		_ = logger.SetLevelString("warn")
	}
	log := logger.Get().Named("points")

	if *rank != 0 {
		log.Debug(ctx, "single rank", logger.Int("rank", *rank), logger.Int("tier", scoring.Tier(*rank)))
		fmt.Fprintf(stdout, "%d\t%s\n", *rank, formatPoints(scoring.CalculatePoint(*rank)))
		return exitOK
	}

	records, err := parseInput(*ranks, flags.Args(), *slots)
	if err != nil {
		fmt.Fprintln(stderr, err)
		flags.Usage()
		return exitUsage
	}

	calc := service.New(service.WithSlots(*slots), service.WithLogger(log))
	display, err := calc.Recalculate(ctx, storage.NewMemoryStore(), records)
	if err != nil {
		log.Error(ctx, "calculation failed", logger.Error(err))
		return exitError
	}

	for _, slot := range display.Slots {
		if slot.Value == "" {
			continue
		}
		fmt.Fprintf(stdout, "#%d\t%s\t%s\n", slot.ID, slot.Value, slot.Label)
	}
	fmt.Fprintf(stdout, "total\t%d\n", display.Total)
	fmt.Fprintf(stdout, "records\t%s\n", display.Records)
	return exitOK
}

// parseInput prefers the serialized form; positional arguments fill slots
// in order.
func parseInput(serialized string, positional []string, slots int) (model.Records, error) {
	if slots <= 0 {
		slots = service.DefaultSlots
	}
	switch {
	case serialized != "":
		return model.ParseRecords(serialized, slots), nil
	case len(positional) > 0:
		if len(positional) > slots {
			return nil, fmt.Errorf("%d ranks for %d slots", len(positional), slots)
		}
		return model.ParseRecords(strings.Join(positional, model.RecordSeparator), slots), nil
	default:
		return nil, errNoRanks
	}
}

func formatPoints(p float64) string {
	if s := scoring.FormatPoints(p); s != "" {
		return s
	}
	return "0"
}
