package cache

import (
	"log/slog"
	"time"
)

// Cache is the contract the report service caches finished reports behind.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Clear drops every entry, e.g. after new titles are imported.
	Clear()
	Size() int
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically evicts expired entries from registered caches so that
// stale reports do not pin memory between requests.
type Janitor struct {
	caches []Cleaner
	logger *slog.Logger
	stop   chan struct{}
	done   chan struct{}
}

// NewJanitor creates a janitor; a nil logger disables the cleanup log line.
func NewJanitor(logger *slog.Logger) *Janitor {
	return &Janitor{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a cache to the cleanup round.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Start runs a cleanup round every interval until Stop.
func (j *Janitor) Start(interval time.Duration) {
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 && j.logger != nil {
				j.logger.Debug("Evicted expired cache entries", "count", n)
			}
		case <-j.stop:
			return
		}
	}
}

// Sweep runs one cleanup round and returns the number of evicted entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop started by Start and waits for it.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
