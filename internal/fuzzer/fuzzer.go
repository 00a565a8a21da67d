// Package fuzzer runs mutation iterations over one input file.
package fuzzer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/internal/config"
	"github.com/blacktop/dexfuzz/internal/db"
	"github.com/blacktop/dexfuzz/internal/model"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/program/mutators"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Job is one iteration.
type Job struct {
	Seed   int64
	Output string
	// Dump is where the mutation log is written; empty for none.
	Dump string
	// Replay, when set, is applied instead of random mutation.
	Replay []program.ParsedMutation
}

// Result describes the output of one iteration.
type Result struct {
	Seed      int64
	Output    string
	Hash      string
	Size      int
	Changed   bool
	Duplicate bool
	Mutations []program.MutationRecord
	Stats     *program.MutationStats
}

// Fuzzer mutates copies of one input file.
type Fuzzer struct {
	opts        *config.Options
	likelihoods map[string]int
	input       []byte
	runID       string

	dbMu sync.Mutex
	db   db.Database
}

// New reads the input named by opts and connects the unique database if
// one is configured.
func New(opts *config.Options) (*Fuzzer, error) {
	if opts.Input == "" {
		return nil, errors.New("no input file given")
	}
	likelihoods, err := opts.ResolveLikelihoods(mutators.Names())
	if err != nil {
		return nil, err
	}
	input, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", opts.Input)
	}
	f := &Fuzzer{
		opts:        opts,
		likelihoods: likelihoods,
		input:       input,
		runID:       uuid.NewString(),
	}
	if opts.UniqueDB != "" {
		d, err := db.Open(opts.UniqueDB, opts.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create unique database")
		}
		if err := d.Connect(); err != nil {
			return nil, errors.Wrapf(err, "failed to connect to %s", opts.UniqueDB)
		}
		f.db = d
	}
	return f, nil
}

// RunID identifies the programs this fuzzer records.
func (f *Fuzzer) RunID() string { return f.runID }

// Close closes the unique database.
func (f *Fuzzer) Close() error {
	if f.db == nil {
		return nil
	}
	return f.db.Close()
}

// Fuzz runs the single iteration the options describe, loading or dumping
// the mutation log as asked.
func (f *Fuzzer) Fuzz() (*Result, error) {
	j := Job{Seed: f.opts.Seed, Output: f.opts.Output}
	switch {
	case f.opts.LoadMutations:
		replay, err := LoadMutations(f.opts.DumpFile)
		if err != nil {
			return nil, err
		}
		j.Replay = replay
	case f.opts.DumpMutations:
		j.Dump = f.opts.DumpFile
	}
	return f.Run(j)
}

// LoadMutations reads a mutation log.
func LoadMutations(path string) ([]program.ParsedMutation, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mutation log")
	}
	defer r.Close()
	replay, err := program.ReadMutations(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	// an empty log still replays: nothing is mutated
	if replay == nil {
		replay = []program.ParsedMutation{}
	}
	return replay, nil
}

// Run parses a fresh copy of the input, mutates it and writes the output
// unless the unique database has seen it before.
func (f *Fuzzer) Run(j Job) (*Result, error) {
	dex, err := rawdex.Parse(f.input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", f.opts.Input)
	}
	opts := f.opts.ProgramOptions(f.likelihoods)
	opts.Seed = j.Seed
	opts.Replay = j.Replay

	p, err := program.New(dex, opts, mutators.All)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load program")
	}
	if !f.opts.SkipMutation || j.Replay != nil {
		if err := p.MutateTheProgram(); err != nil {
			return nil, errors.Wrap(err, "failed to mutate program")
		}
	}
	changed, err := p.UpdateRawDexFile()
	if err != nil {
		return nil, errors.Wrap(err, "failed to update program")
	}
	data, err := dex.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write program")
	}

	res := &Result{
		Seed:      j.Seed,
		Output:    j.Output,
		Hash:      db.Hash(data),
		Size:      len(data),
		Changed:   changed,
		Mutations: p.Mutations(),
		Stats:     p.Stats(),
	}
	if dup, err := f.seen(res); err != nil {
		return nil, err
	} else if dup {
		log.WithFields(log.Fields{"hash": res.Hash, "seed": j.Seed}).Debug("Skipping duplicate program")
		res.Duplicate = true
		res.Output = ""
		return res, nil
	}

	if err := atomic.WriteFile(j.Output, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", j.Output)
	}
	if j.Dump != "" {
		var buf bytes.Buffer
		if err := p.WriteMutations(&buf); err != nil {
			return nil, errors.Wrap(err, "failed to format mutation log")
		}
		if err := atomic.WriteFile(j.Dump, &buf); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", j.Dump)
		}
	}
	log.WithFields(log.Fields{
		"output":    j.Output,
		"mutations": len(res.Mutations),
		"hash":      res.Hash,
	}).Debug("Wrote program")
	return res, nil
}

func (f *Fuzzer) seen(res *Result) (bool, error) {
	if f.db == nil {
		return false, nil
	}
	f.dbMu.Lock()
	defer f.dbMu.Unlock()
	dup, err := f.db.Seen(&model.Program{
		Hash:      res.Hash,
		RunID:     f.runID,
		Input:     f.opts.Input,
		Output:    res.Output,
		Seed:      res.Seed,
		Mutations: len(res.Mutations),
		Size:      res.Size,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to check unique database")
	}
	return dup, nil
}

// Summary totals a repeated run.
type Summary struct {
	Runs       int
	Written    int
	Duplicates int
	Failed     int
	Stats      *program.MutationStats
}

// OutputName returns the name of the output of iteration i.
func OutputName(i int) string { return fmt.Sprintf("%06d.dex", i) }

// Repeat runs n iterations into dir, up to jobs at a time. Iteration i uses
// the configured seed plus i. A failing iteration is logged and counted;
// only a cancelled ctx stops the run early. progress, if not nil, is called
// after every iteration with its result or error.
func (f *Fuzzer) Repeat(ctx context.Context, dir string, n int, progress func(*Result, error)) (*Summary, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}

	var mu sync.Mutex
	sum := &Summary{Stats: program.NewMutationStats()}
	report := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Jobs)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			j := Job{
				Seed:   f.opts.Seed + int64(i),
				Output: filepath.Join(dir, OutputName(i)),
			}
			if f.opts.DumpMutations {
				j.Dump = strings.TrimSuffix(j.Output, ".dex") + ".mutations"
			}
			res, err := f.Run(j)

			mu.Lock()
			defer mu.Unlock()
			if progress != nil {
				progress(res, err)
			}
			sum.Runs++
			switch {
			case err != nil:
				log.WithError(err).WithField("seed", j.Seed).Warn("Iteration failed")
				sum.Failed++
				report[i] = fmt.Sprintf("%s seed=%d error=%q", OutputName(i), j.Seed, err)
				return nil
			case res.Duplicate:
				sum.Duplicates++
				report[i] = fmt.Sprintf("%s seed=%d hash=%s duplicate", OutputName(i), j.Seed, res.Hash)
			default:
				sum.Written++
				report[i] = fmt.Sprintf("%s seed=%d hash=%s mutations=%d", OutputName(i), j.Seed, res.Hash, len(res.Mutations))
			}
			sum.Stats.Merge(res.Stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if f.opts.Report != "" {
		var buf bytes.Buffer
		for _, line := range report {
			if line != "" {
				buf.WriteString(line + "\n")
			}
		}
		if err := atomic.WriteFile(filepath.Join(dir, f.opts.Report), &buf); err != nil {
			return sum, errors.Wrap(err, "failed to write report")
		}
	}
	return sum, ctx.Err()
}
