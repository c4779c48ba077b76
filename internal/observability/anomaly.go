package observability

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jkaninda/bureau/internal/config"
)

// minSamples is the number of observations needed before a rate is judged.
const minSamples = 5

// AnomalyDetector flags operations whose error rate over a sliding window
// exceeds the configured threshold.
type AnomalyDetector struct {
	mu        sync.Mutex
	errors    map[string]*slidingWindow
	successes map[string]*slidingWindow
	threshold float64
	window    time.Duration
	flagged   map[string]bool
	logger    *slog.Logger
	now       func() time.Time
}

type slidingWindow struct {
	entries []time.Time
	window  time.Duration
}

// NewAnomalyDetector creates an anomaly detector from config.
func NewAnomalyDetector(cfg *config.AnomalyConfig, logger *slog.Logger) *AnomalyDetector {
	secs := cfg.WindowSeconds
	if secs <= 0 {
		secs = 300
	}
	return &AnomalyDetector{
		errors:    make(map[string]*slidingWindow),
		successes: make(map[string]*slidingWindow),
		flagged:   make(map[string]bool),
		threshold: cfg.ErrorRateThreshold,
		window:    time.Duration(secs) * time.Second,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordError records a failed operation and re-evaluates its error rate.
func (a *AnomalyDetector) RecordError(operation string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windowFor(a.errors, operation).add(a.now())
	a.evaluate(operation)
}

// RecordSuccess records a successful operation.
func (a *AnomalyDetector) RecordSuccess(operation string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windowFor(a.successes, operation).add(a.now())
	a.evaluate(operation)
}

// Flagged reports whether operation is currently over the threshold.
func (a *AnomalyDetector) Flagged(operation string) bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flagged[operation]
}

// evaluate logs once when an operation crosses the threshold and once when
// it recovers. Must be called with a.mu held.
func (a *AnomalyDetector) evaluate(operation string) {
	if a.threshold <= 0 {
		return
	}
	now := a.now()
	errs := float64(a.windowFor(a.errors, operation).count(now))
	total := errs + float64(a.windowFor(a.successes, operation).count(now))
	if total < minSamples {
		return
	}

	rate := errs / total
	over := rate > a.threshold
	if over == a.flagged[operation] {
		return
	}
	a.flagged[operation] = over
	if a.logger == nil {
		return
	}
	if over {
		a.logger.Warn("anomaly detected: high error rate",
			slog.String("operation", operation),
			slog.Float64("error_rate", rate),
			slog.Float64("threshold", a.threshold),
			slog.Float64("total", total),
		)
	} else {
		a.logger.Info("error rate recovered",
			slog.String("operation", operation),
			slog.Float64("error_rate", rate),
		)
	}
}

func (a *AnomalyDetector) windowFor(m map[string]*slidingWindow, key string) *slidingWindow {
	w, ok := m[key]
	if !ok {
		w = &slidingWindow{window: a.window}
		m[key] = w
	}
	return w
}

func (w *slidingWindow) add(t time.Time) {
	w.entries = append(w.entries, t)
	w.prune(t)
}

func (w *slidingWindow) count(now time.Time) int {
	w.prune(now)
	return len(w.entries)
}

// prune removes entries older than the window.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = w.entries[i:]
	}
}
