package scheduler

import (
	"context"
	"time"

	"lending_crm_backend/platform/logger"
)

const (
	defaultAgeRecomputeInterval   = 24 * time.Hour
	defaultStatsRecomputeInterval = time.Hour
)

// Periodic enqueues the recurring maintenance tasks on fixed intervals.
// Ages drift once a day at most, lender stats after every MIS upload,
// so both tickers are coarse.
type Periodic struct {
	client        *Client
	log           *logger.Logger
	ageInterval   time.Duration
	statsInterval time.Duration
}

func NewPeriodic(client *Client, log *logger.Logger, ageInterval, statsInterval time.Duration) *Periodic {
	if ageInterval <= 0 {
		ageInterval = defaultAgeRecomputeInterval
	}
	if statsInterval <= 0 {
		statsInterval = defaultStatsRecomputeInterval
	}

	return &Periodic{
		client:        client,
		log:           log,
		ageInterval:   ageInterval,
		statsInterval: statsInterval,
	}
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	p.enqueueAges(ctx)
	p.enqueueStats(ctx)

	ageTicker := time.NewTicker(p.ageInterval)
	defer ageTicker.Stop()
	statsTicker := time.NewTicker(p.statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ageTicker.C:
			p.enqueueAges(ctx)
		case <-statsTicker.C:
			p.enqueueStats(ctx)
		}
	}
}

func (p *Periodic) enqueueAges(ctx context.Context) {
	if err := p.client.EnqueueRecomputeAges(ctx); err != nil {
		p.log.Warn("enqueue age recompute failed", "error", err)
	}
}

func (p *Periodic) enqueueStats(ctx context.Context) {
	if err := p.client.EnqueueRecomputeLenderStats(ctx, ""); err != nil {
		p.log.Warn("enqueue lender stats recompute failed", "error", err)
	}
}
