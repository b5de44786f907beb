package debug

// Debug loggers started only when config.Debug is true. They emit runtime
// and component metrics at a fixed interval until the context ends.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StartGoroutineLogger launches a ticker that logs goroutine count and stack memory.
func StartGoroutineLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	every(ctx, interval, func() {
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		metrics.Read(samples)
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		logger.Info("goroutine-stacks",
			slog.Uint64("goroutines", samples[0].Value.Uint64()),
			slog.Uint64("stack_inuse", ms.StackInuse),
			slog.Uint64("stack_sys", ms.StackSys),
			slog.Uint64("heap_alloc", ms.HeapAlloc),
		)
	})
}

// StatsLogger is implemented by components that report counters.
type StatsLogger interface {
	LogStats()
}

// StatsFunc adapts a function to StatsLogger.
type StatsFunc func()

func (f StatsFunc) LogStats() { f() }

// StartStatsLogger calls LogStats on every source each interval.
func StartStatsLogger(ctx context.Context, interval time.Duration, sources ...StatsLogger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	every(ctx, interval, func() {
		for _, s := range sources {
			if s != nil {
				s.LogStats()
			}
		}
	})
}

// StartMemLogger logs heap stats and process RSS every interval. Failures to
// query RSS are logged once and suppressed.
func StartMemLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	var rssErrLogged bool
	every(ctx, interval, func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		rss, err := processRSS()
		if err != nil && !rssErrLogged {
			logger.Warn("memlog: rss query failed", slog.String("err", err.Error()))
			rssErrLogged = true
		}
		logger.Info("memstats",
			slog.Int("goroutines", runtime.NumGoroutine()),
			slog.Uint64("heap_alloc", ms.HeapAlloc),
			slog.Uint64("heap_inuse", ms.HeapInuse),
			slog.Uint64("heap_idle", ms.HeapIdle),
			slog.Uint64("heap_sys", ms.HeapSys),
			slog.Uint64("next_gc", ms.NextGC),
			slog.Uint64("rss", rss),
			slog.Uint64("num_gc", uint64(ms.NumGC)),
		)
	})
}

func every(ctx context.Context, interval time.Duration, f func()) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				f()
			}
		}
	}()
}
