// Package search drives a backend across every shard of the seed space and
// merges what each dispatch finds.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phpmtseed/phpmtseed/internal/result"
	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// Backend runs one shard at a time. RunShard blocks until the dispatch has
// completed and its result buffer has been read back.
type Backend interface {
	RunShard(shard uint32) (result.Batch, error)
	Name() string
	Close()
}

// Report is the outcome of a run.
type Report struct {
	Seeds    []uint32 // sorted
	Shards   int      // shards completed
	Lanes    uint32
	Elapsed  time.Duration
	Overflow *result.OverflowError
}

// Stats holds progress information for the search.
type Stats struct {
	Progress    shard.Progress
	Found       int
	SeedsPerSec float64
	Elapsed     time.Duration
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Searcher) { s.log = l }
}

// WithProgress registers a callback invoked after each completed shard.
func WithProgress(fn func(shard.Progress)) Option {
	return func(s *Searcher) { s.onProgress = fn }
}

// WithFound registers a callback invoked for every captured seed, in shard
// order and ascending within a shard.
func WithFound(fn func(seed uint32)) Option {
	return func(s *Searcher) { s.onFound = fn }
}

// Searcher coordinates sequential shard dispatches on one backend.
type Searcher struct {
	backend    Backend
	plan       shard.Plan
	log        logrus.FieldLogger
	onProgress func(shard.Progress)
	onFound    func(uint32)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	report Report
	err    error
}

// New creates a searcher over plan. The backend stays owned by the caller.
func New(backend Backend, plan shard.Plan, opts ...Option) *Searcher {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	s := &Searcher{
		backend:    backend,
		plan:       plan,
		log:        quiet,
		onProgress: func(shard.Progress) {},
		onFound:    func(uint32) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run dispatches shards 0..Count-1 in order, one at a time. Cancellation is
// honoured between shards only. On overflow the captured seeds are kept and
// a *result.OverflowError is returned together with the partial report; on a
// backend failure the failing shard contributes nothing.
func (s *Searcher) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{Lanes: s.plan.Lanes}
	finish := func(err error) (Report, error) {
		slices.Sort(rep.Seeds)
		rep.Elapsed = time.Since(start)
		return rep, err
	}

	if err := s.plan.Validate(); err != nil {
		return finish(err)
	}

	s.log.WithFields(logrus.Fields{
		"backend": s.backend.Name(),
		"lanes":   s.plan.Lanes,
		"shards":  shard.Count,
	}).Info("starting seed search")

	for sh := range s.plan.Shards() {
		if err := ctx.Err(); err != nil {
			s.log.WithField("shard", sh).Warn("search cancelled")
			return finish(err)
		}

		t := time.Now()
		batch, err := s.backend.RunShard(sh)
		if err != nil {
			return finish(fmt.Errorf("shard %d: %w", sh, err))
		}
		s.log.WithFields(logrus.Fields{
			"shard":    sh,
			"matches":  batch.Total,
			"duration": time.Since(t),
		}).Debug("shard complete")

		seeds := slices.Clone(batch.Seeds)
		slices.Sort(seeds)
		for _, seed := range seeds {
			s.onFound(seed)
		}
		rep.Seeds = append(rep.Seeds, seeds...)

		if err := batch.Check(sh); err != nil {
			var oe *result.OverflowError
			if errors.As(err, &oe) {
				rep.Overflow = oe
			}
			s.log.WithFields(logrus.Fields{
				"shard":    sh,
				"total":    batch.Total,
				"captured": batch.Captured(),
			}).Warn("result buffer overflow")
			return finish(err)
		}

		rep.Shards++
		s.onProgress(shard.Progress{Completed: rep.Shards, Total: shard.Count})
	}

	return finish(nil)
}

// Start runs the search in the background. The seeds channel receives every
// captured seed and the stats channel receives an update after each shard;
// both close when the search ends, after which Wait returns immediately.
// Callers must drain the seeds channel. Start may be called once.
func (s *Searcher) Start(ctx context.Context) (<-chan uint32, <-chan Stats) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	seedCh := make(chan uint32, 64)
	statsCh := make(chan Stats, 1)

	startTime := time.Now()
	found := 0
	prevFound, prevProgress := s.onFound, s.onProgress
	s.onFound = func(seed uint32) {
		prevFound(seed)
		found++
		seedCh <- seed
	}
	s.onProgress = func(p shard.Progress) {
		prevProgress(p)
		elapsed := time.Since(startTime)
		sps := 0.0
		if elapsed.Seconds() > 0 {
			sps = float64(uint64(p.Completed)*uint64(s.plan.Lanes)) / elapsed.Seconds()
		}
		select {
		case statsCh <- Stats{Progress: p, Found: found, SeedsPerSec: sps, Elapsed: elapsed}:
		default:
			// Drop stat if channel is full (non-blocking)
		}
	}

	go func() {
		rep, err := s.Run(ctx)
		cancel()
		s.mu.Lock()
		s.report, s.err = rep, err
		s.mu.Unlock()
		close(seedCh)
		close(statsCh)
		close(done)
	}()

	return seedCh, statsCh
}

// Wait blocks until a search begun with Start ends and returns its outcome.
func (s *Searcher) Wait() (Report, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return Report{}, errors.New("search: Wait called before Start")
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.err
}

// Stop cancels the running search. The shard in flight runs to completion.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
