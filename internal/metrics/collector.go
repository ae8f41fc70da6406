package metrics

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Build information, overridden at link time:
//
//	go build -ldflags "-X .../internal/metrics.Version=... -X .../internal/metrics.Commit=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const snapshotEvery = 10 * time.Minute

// SystemCollector exports uptime, goroutine and memory gauges on a
// fixed interval.
type SystemCollector struct {
	metrics      *Metrics
	logger       *zap.Logger
	startTime    time.Time
	lastSnapshot time.Time
	ticker       *time.Ticker
	stopCh       chan struct{}
}

func NewSystemCollector(metrics *Metrics, logger *zap.Logger) *SystemCollector {
	now := time.Now()
	return &SystemCollector{
		metrics:      metrics,
		logger:       logger,
		startTime:    now,
		lastSnapshot: now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins collecting system metrics at regular intervals
func (sc *SystemCollector) Start(interval time.Duration) {
	sc.ticker = time.NewTicker(interval)

	sc.metrics.SetServiceVersion(Version, Commit, BuildDate)

	go sc.collectLoop()
	sc.logger.Info("System metrics collector started", zap.Duration("interval", interval))
}

// Stop stops the system metrics collector
func (sc *SystemCollector) Stop() {
	if sc.ticker != nil {
		sc.ticker.Stop()
	}
	close(sc.stopCh)
	sc.logger.Info("System metrics collector stopped")
}

func (sc *SystemCollector) collectLoop() {
	sc.collect()

	for {
		select {
		case <-sc.ticker.C:
			sc.collect()
		case <-sc.stopCh:
			return
		}
	}
}

func (sc *SystemCollector) collect() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(sc.startTime)

	sc.metrics.UpdateSystemMetrics(uptime, &memStats)

	if time.Since(sc.lastSnapshot) >= snapshotEvery {
		sc.lastSnapshot = time.Now()
		sc.logger.Info("System metrics snapshot",
			zap.Duration("uptime", uptime),
			zap.Int("goroutines", runtime.NumGoroutine()),
			zap.Uint64("alloc_mb", memStats.Alloc/1024/1024),
			zap.Uint64("sys_mb", memStats.Sys/1024/1024),
			zap.Uint32("gc_count", memStats.NumGC),
		)
	}
}
