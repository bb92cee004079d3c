package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	dmm "github.com/luhtfiimanal/go-dmm"
	"golang.org/x/sync/errgroup"
)

// star is the demo record written by fill.
type star struct {
	Idx     int64
	RA, Dec float64
	X, Y, Z float64
}

func makeStar(idx int64) star {
	ra := float64(idx%36000) / 100
	dec := float64(idx%18000)/100 - 90
	r, d := ra*math.Pi/180, dec*math.Pi/180
	return star{
		Idx: idx,
		RA:  ra,
		Dec: dec,
		X:   math.Cos(d) * math.Cos(r),
		Y:   math.Cos(d) * math.Sin(r),
		Z:   math.Sin(d),
	}
}

// runs returns the starting indices of n random runs.
func runs(seed, n, limit int64) []int64 {
	r := rand.New(rand.NewSource(seed))
	starts := make([]int64, n)
	for i := range starts {
		starts[i] = r.Int63n(limit)
	}
	return starts
}

func fill(args []string) error {
	var (
		flags      = flag.NewFlagSet("dmmtool fill", flag.ExitOnError)
		nruns      = flags.Int64("runs", 100, "number of runs")
		runLen     = flags.Int64("run", 1000, "records per run")
		maxStart   = flags.Int64("max", 10000000, "largest starting index of a run")
		seed       = flags.Int64("seed", 1, "random seed")
		window     = flags.Int("window", 0, "window size in bytes; 0 uses the default")
		maxWindows = flags.Int("maxwindows", 0, "number of open windows; 0 uses the default")
		blockLen   = flags.Int64("blocklen", 100000, "records per block file when creating the set")
		parallel   = flags.Int("parallel", 1, "fill this many independent sets <desc>.<k> concurrently")
	)
	path := descArg(flags, args)
	if *nruns <= 0 || *runLen <= 0 || *maxStart <= 0 || *parallel <= 0 {
		return errors.E(errors.Invalid, "runs, run, max and parallel must be positive")
	}

	opts := dmm.DefaultOptions()
	opts.WindowSize = *window
	opts.MaxWindows = *maxWindows
	opts.BlockLength = *blockLen
	job := fillJob{runs: *nruns, runLen: *runLen, maxStart: *maxStart, opts: opts}
	if *parallel == 1 {
		job.path, job.seed = path, *seed
		return job.do()
	}
	// Each set has its own files and DiskArray, so the sets may be filled
	// concurrently.
	var g errgroup.Group
	for k := 0; k < *parallel; k++ {
		job := job
		job.path, job.seed = fmt.Sprintf("%s.%d", path, k), *seed+int64(k)
		g.Go(job.do)
	}
	return g.Wait()
}

type fillJob struct {
	path     string
	seed     int64
	runs     int64
	runLen   int64
	maxStart int64
	opts     dmm.Options
}

func (j fillJob) do() error {
	a, err := dmm.OpenRecords[star](j.path, dmm.ReadWrite, true, j.opts)
	if err != nil {
		return err
	}
	defer a.Close()

	starts := runs(j.seed, j.runs, j.maxStart)
	for _, start := range starts {
		for idx := start; idx < start+j.runLen; idx++ {
			if err := a.Set(idx, makeStar(idx)); err != nil {
				return err
			}
		}
	}
	log.Printf("%s: wrote %d runs of %d records: size %d, %d blocks", j.path, j.runs, j.runLen, a.Size(), a.BlockCount())

	a.ResetStats()
	for _, start := range starts {
		for idx := start; idx < start+j.runLen; idx++ {
			got, err := a.Value(idx)
			if err != nil {
				return err
			}
			if want := makeStar(idx); got != want {
				return errors.E(errors.Integrity, fmt.Sprintf("%s: record %d: got %+v, want %+v", j.path, idx, got, want))
			}
		}
	}
	st := a.Stats()
	log.Printf("%s: verified: hits %d, misses %d, opens %d, evictions %d, hit ratio %.2f%%",
		j.path, st.Hits, st.Misses, st.Opens, st.Evictions, st.HitRatio)
	return a.Close()
}
