// Package schedule fetches the course offering list and keeps the most
// recent good copy in memory.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "coursesched/internal/log"
	"coursesched/internal/model"
)

// ErrNoSchedule is returned by Require before any schedule was loaded.
var ErrNoSchedule = errors.New("schedule not loaded")

// Options configures a Loader.
type Options struct {
	URL string
	// Retries is the number of extra attempts Run makes after a failure.
	Retries int
	// Backoff is the delay before the first retry; it doubles each time.
	Backoff time.Duration
}

// Status describes the loader's most recent outcome.
type Status struct {
	Loaded    bool
	Title     string
	Courses   int
	Problems  int
	FromCache bool
	UpdatedAt time.Time
	LastError error
}

// Loader owns the current schedule. A successful load replaces it as a
// whole; a failed load keeps the previous one and records the error.
type Loader struct {
	fetcher *Fetcher
	opts    Options

	// loadMu serializes loads from Run and the cron refresh.
	loadMu sync.Mutex

	mu     sync.RWMutex
	sched  model.Schedule
	status Status
	hooks  []func(model.Schedule)

	sleep func(context.Context, time.Duration) error
}

func NewLoader(f *Fetcher, opts Options) *Loader {
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Loader{
		fetcher: f,
		opts:    opts,
		sleep:   sleepCtx,
	}
}

// OnUpdate registers fn to be called after every successful load.
func (l *Loader) OnUpdate(fn func(model.Schedule)) {
	l.mu.Lock()
	l.hooks = append(l.hooks, fn)
	l.mu.Unlock()
}

// Current returns the loaded schedule, if any.
func (l *Loader) Current() (model.Schedule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sched, l.status.Loaded
}

// Require is Current with ErrNoSchedule (wrapping the last failure, if any)
// instead of a boolean.
func (l *Loader) Require() (model.Schedule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.status.Loaded {
		if l.status.LastError != nil {
			return model.Schedule{}, fmt.Errorf("%w: %v", ErrNoSchedule, l.status.LastError)
		}
		return model.Schedule{}, ErrNoSchedule
	}
	return l.sched, nil
}

func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Load performs a single fetch + decode. If ctx is canceled while the
// request is in flight the result is discarded.
func (l *Loader) Load(ctx context.Context) error {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	res, err := l.fetcher.Fetch(ctx, l.opts.URL)
	if err != nil {
		return l.fail(ctx, err)
	}
	sched, problems, err := Decode(res.Body)
	if err != nil {
		return l.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range problems {
		appLog.Warn("schedule course problem", "problem", p.Error())
	}

	l.mu.Lock()
	l.sched = sched
	l.status = Status{
		Loaded:    true,
		Title:     sched.Title,
		Courses:   len(sched.Courses),
		Problems:  len(problems),
		FromCache: res.FromCache,
		UpdatedAt: time.Now(),
	}
	hooks := append([]func(model.Schedule){}, l.hooks...)
	l.mu.Unlock()

	appLog.Info("schedule loaded",
		"title", sched.Title,
		"courses", len(sched.Courses),
		"problems", len(problems),
		"from_cache", res.FromCache,
	)
	for _, fn := range hooks {
		fn(sched)
	}
	return nil
}

func (l *Loader) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	l.mu.Lock()
	l.status.LastError = err
	l.mu.Unlock()
	return err
}

// Run loads the schedule, retrying with exponential backoff up to
// Options.Retries times. It returns the last error if every attempt fails,
// or ctx.Err() if ctx is canceled first.
func (l *Loader) Run(ctx context.Context) error {
	delay := l.opts.Backoff
	var err error
	for attempt := 0; attempt <= l.opts.Retries; attempt++ {
		if attempt > 0 {
			appLog.Info("retrying schedule load", "attempt", attempt+1, "delay", delay.String())
			if serr := l.sleep(ctx, delay); serr != nil {
				return serr
			}
			delay *= 2
		}
		if err = l.Load(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		appLog.Error("schedule load failed", err, "attempt", attempt+1, "max_attempts", l.opts.Retries+1)
	}
	return err
}

// Schedule registers a periodic refresh on c using a standard 5-field cron
// spec. Failures are logged; the previous schedule stays in place.
func (l *Loader) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if err := l.Load(ctx); err != nil && ctx.Err() == nil {
			appLog.Error("scheduled schedule refresh failed", err)
		}
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
