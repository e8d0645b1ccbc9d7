// Package timeouts centralizes the context deadlines used for database
// and I/O work.
//
// Tiers:
//   - Ping: health checks and connectivity probes
//   - Short: single-document reads
//   - Medium: list queries and moderate writes
//   - Long: multi-collection writes and transactions
//   - Batch: bulk approvals and CSV exports
package timeouts

import (
	"os"
	"sync"
	"time"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

func get(d *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *d
}

// Ping is the deadline for health checks and connectivity probes.
func Ping() time.Duration { return get(&ping) }

// Short is the deadline for single-document reads.
func Short() time.Duration { return get(&short) }

// Medium is the deadline for list queries and moderate writes.
func Medium() time.Duration { return get(&medium) }

// Long is the deadline for multi-collection writes and transactions.
func Long() time.Duration { return get(&long) }

// Batch is the deadline for bulk operations and exports.
func Batch() time.Duration { return get(&batch) }

// Config overrides timeout tiers. Zero values keep the current setting.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure applies cfg. Call during startup, before handlers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, o := range []struct {
		v time.Duration
		p *time.Duration
	}{
		{cfg.Ping, &ping},
		{cfg.Short, &short},
		{cfg.Medium, &medium},
		{cfg.Long, &long},
		{cfg.Batch, &batch},
	} {
		if o.v > 0 {
			*o.p = o.v
		}
	}
}

// ConfigureFromEnv reads HACKHUB_TIMEOUT_{PING,SHORT,MEDIUM,LONG,BATCH}
// as Go durations ("500ms", "2s", "2m"). Unset or invalid variables keep
// the current value. Returns how many tiers were overridden.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()

	overridden := 0
	for _, o := range []struct {
		key string
		p   *time.Duration
	}{
		{"HACKHUB_TIMEOUT_PING", &ping},
		{"HACKHUB_TIMEOUT_SHORT", &short},
		{"HACKHUB_TIMEOUT_MEDIUM", &medium},
		{"HACKHUB_TIMEOUT_LONG", &long},
		{"HACKHUB_TIMEOUT_BATCH", &batch},
	} {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*o.p = d
			overridden++
		}
	}
	return overridden
}

// Reset restores the defaults. Intended for tests.
func Reset() {
	Configure(Config{DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch})
}

// Current snapshots the active configuration, for startup logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Batch: batch}
}
