package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/beewell/momentum/internal/seedevents"
)

// Default configuration constants.
const (
	defaultNumUsers = 25
	defaultDays     = 30
	defaultTimeout  = 10 * time.Minute
)

func main() {
	var (
		dbPath    = flag.String("db", "momentum.db", "SQLite database file to seed")
		numUsers  = flag.Int("users", defaultNumUsers, "Number of synthetic users to generate")
		days      = flag.Int("days", defaultDays, "Days of history to generate, ending today")
		calculate = flag.Bool("calculate", false, "Run the score calculation after seeding")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cfg := &seedevents.Config{
		DBPath:    *dbPath,
		NumUsers:  *numUsers,
		Days:      *days,
		Calculate: *calculate,
		Verbose:   *verbose,
	}

	if err := seedevents.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
