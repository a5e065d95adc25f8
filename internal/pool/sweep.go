package pool

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically calls Pool.CloseIdle on a cron schedule, closing
// every connection that is idle at sweep time (however recently it was
// released) so idle fingerprinted transports don't accumulate forever.
type Sweeper struct {
	cron *cron.Cron
	pool *Pool
}

// NewSweeper schedules CloseIdle(nil) (sweep everything idle) to run on
// spec, a standard 5-field cron expression (e.g. "*/5 * * * *").
func NewSweeper(p *Pool, spec string) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n := p.CloseIdle(nil)
		if n > 0 {
			log.Printf("[pool] idle sweep closed %d connection(s)", n)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Sweeper{cron: c, pool: p}, nil
}

// Start begins the cron scheduler in its own goroutine.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }
