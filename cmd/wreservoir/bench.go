package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/wreservoir/pkg/reservoir"
	"github.com/calvinalkan/wreservoir/pkg/rng"
)

const benchRepeats = 5

// runBench mirrors the original benchmark driver: construct a
// reservoir, feed it five randomly-sized batches through
// KeepNAppend, clear and reseed, then feed five more through
// RemoveNInject.
func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	alpha := fs.Float64("alpha", 0, "power-law exponent (default from config)")
	capacity := fs.Uint64("cap", 0, "reservoir capacity (required, or set in config)")
	var seedVal uint64
	fs.Uint64VarP(&seedVal, "seed", "s", 0, "RNG seed (0 = random)")
	verbose := fs.IntP("verbose", "v", 0, "verbosity level (0-4)")
	configPath := fs.String("config", "", "config file path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *alpha != 0 {
		cfg.Alpha = *alpha
	}
	if *capacity != 0 {
		cfg.Capacity = *capacity
	}
	if seedVal != 0 {
		cfg.Seed = seedVal
	}
	if *verbose != 0 {
		cfg.Verbose = *verbose
	}
	if cfg.Capacity == 0 {
		return fmt.Errorf("--cap is required")
	}

	src := rng.NewSource(1)
	usedSeed := cfg.Seed
	if usedSeed == 0 {
		usedSeed = src.Randomize()
	} else {
		src.Seed(usedSeed)
	}
	fmt.Fprintf(os.Stdout, "Random seed set to %d\n", usedSeed)

	r := reservoir.New(cfg.Capacity, cfg.Alpha, src)
	fmt.Fprintf(os.Stdout, "Reservoir initiated with capacity %d\n", cfg.Capacity)

	nMax := cfg.Capacity * 5

	runBatches(benchRepeats, cfg.Verbose, nMax, src, r.Size, r.GrandTotal, r.KeepNAppend, func() {
		fmt.Fprintf(os.Stdout, "  n_kept: %d;  n_appended: %d;  grand_total: %d\n",
			len(r.Kept()), len(r.Appended()), r.GrandTotal())
	})

	r.Clear()
	src.Seed(usedSeed)

	runBatches(benchRepeats, cfg.Verbose, nMax, src, r.Size, r.GrandTotal, r.RemoveNInject, func() {
		fmt.Fprintf(os.Stdout, "  n_removed: %d;  n_injected: %d;  grand_total: %d\n",
			len(r.Removed()), len(r.Injected()), r.GrandTotal())
	})

	return nil
}

// runBatches feeds repeats randomly-sized batches through ingest,
// reporting per-batch timings and (at higher verbosity) the diff via
// reportDiff.
func runBatches(repeats, verbose int, nMax uint64, src *rng.Source, size func() int, grandTotal func() uint64, ingest func(uint64), reportDiff func()) {
	for i := 0; i < repeats; i++ {
		nProvided := uint64(src.UniformReal(0.1, 1.0) * float64(nMax))
		if nProvided == 0 {
			nProvided = 1
		}
		oldSize := size()

		start := time.Now()
		ingest(nProvided)
		elapsed := time.Since(start)

		if verbose > 0 {
			fmt.Fprintf(os.Stdout, "Took %s to add %d data points to reservoir of current size %d\n",
				elapsed, nProvided, oldSize)
			if verbose > 1 {
				reportDiff()
			}
		}
	}
}
