package ui

import (
	"time"

	"github.com/bamsammich/snapset/internal/stats"
)

// quietPresenter consumes events but produces no output. It still ticks the
// collector so rolling rates stay meaningful for metrics scrapes.
type quietPresenter struct {
	stats stats.ReadTicker
}

func (p *quietPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return nil
			}
		case <-ticker.C:
			p.stats.Tick()
		}
	}
}

func (p *quietPresenter) Summary() string {
	return ""
}
