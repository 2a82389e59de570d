package workers

import (
	"time"

	"github.com/logon-vault/logon-server/internal/logger"
)

// Sweeper periodically invokes a sweep function that evicts expired
// entries from a cache and reports how many it removed. The caches
// already drop stale entries lazily on access; the sweeper bounds how
// long an untouched entry can linger.
type Sweeper struct {
	name     string
	interval time.Duration
	sweep    func() int
	logger   *logger.Logger

	done    chan struct{}
	stopped chan struct{}
}

// NewSweeper returns a Sweeper named name that calls sweep every interval.
func NewSweeper(name string, interval time.Duration, sweep func() int, logger *logger.Logger) *Sweeper {
	return &Sweeper{
		name:     name,
		interval: interval,
		sweep:    sweep,
		logger:   logger,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run starts the sweep loop in its own goroutine and returns immediately.
func (s *Sweeper) Run() {
	go s.loop()
}

// Stop signals the loop to exit and waits until it has.
func (s *Sweeper) Stop() {
	close(s.done)
	<-s.stopped
}

func (s *Sweeper) loop() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			removed := s.sweep()
			if removed > 0 {
				s.logger.Debug().
					Str("worker", s.name).
					Int("removed", removed).
					Msg("swept expired cache entries")
			}
		}
	}
}
