package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Dispatcher races the engines with staged escalation: engines[i] starts
// escalationDelays[i] after the race begins, the first success wins and
// cancels the rest.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
}

// NewDispatcher creates a Dispatcher. Missing delays default to zero, so
// extra engines start immediately. memory may be nil.
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

// Dispatch loads req.URL. When a tier already won for this site it is tried
// alone first; if it fails the site is forgotten and a full race runs.
// The result carries the winning tier and the time the load took.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}

	start := time.Now()
	host := hostOf(req.URL)

	if eng := d.remembered(host); eng != nil {
		slog.Debug("domain memory hit", "host", host, "engine", eng.Name())
		result, err := eng.Fetch(ctx, req)
		if err == nil {
			return stamp(result, eng.Name(), start), nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dispatcher: %s: %w", req.URL, ctx.Err())
		}
		slog.Info("remembered engine failed, racing all engines",
			"host", host, "engine", eng.Name(), "error", err)
		d.memory.Forget(host)
	}

	result, err := d.race(ctx, req)
	if err != nil {
		return nil, err
	}
	if d.memory != nil {
		d.memory.Remember(host, result.Engine)
		slog.Debug("domain memory updated", "host", host, "engine", result.Engine, "sites", d.memory.Len())
	}
	return stamp(result, result.Engine, start), nil
}

func (d *Dispatcher) remembered(host string) Engine {
	if d.memory == nil {
		return nil
	}
	name, ok := d.memory.Lookup(host)
	if !ok {
		return nil
	}
	for _, eng := range d.engines {
		if eng.Name() == name {
			return eng
		}
	}
	return nil
}

func stamp(result *FetchResult, engine string, start time.Time) *FetchResult {
	result.Engine = engine
	result.Elapsed = time.Since(start)
	return result
}

func (d *Dispatcher) race(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	type raceResult struct {
		engine string
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				}
			}
			if raceCtx.Err() != nil {
				return
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{engine: e.Name(), result: result, err: err}
		}(eng, d.escalationDelays[i])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = fmt.Errorf("%s: %w", rr.engine, rr.err)
			continue
		}
		raceCancel()
		slog.Info("engine won race", "engine", rr.engine, "url", req.URL)
		rr.result.Engine = rr.engine
		return rr.result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatcher: %s: %w", req.URL, err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
