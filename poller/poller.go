// Package poller drives submission ingestion: a single periodic loop that
// watches the contest window, flips the running/finished phases, and feeds
// fresh judge submissions into the contest manager.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"graphway/contest"
	"graphway/metrics"
	"graphway/model"
)

// SubmissionFetcher is the slice of the judge client the poller needs.
type SubmissionFetcher interface {
	RecentStatus(ctx context.Context, count int) ([]model.Submission, error)
}

const (
	DefaultInterval  = 10 * time.Second
	DefaultBatchSize = 500
)

type Poller struct {
	manager *contest.Manager
	judge   SubmissionFetcher
	sugar   *zap.SugaredLogger

	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func New(logger *zap.Logger, manager *contest.Manager, judge SubmissionFetcher,
	interval time.Duration, batchSize int,
) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Poller{
		manager:   manager,
		judge:     judge,
		sugar:     logger.Sugar().Named("poller"),
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run spins until the context is cancelled. Cancellation is checked once per
// iteration boundary, so termination latency is bounded by one interval. A
// failing judge API never terminates the loop; the cycle's error is logged
// and the next tick retries.
func (p *Poller) Run(ctx context.Context) error {
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	p.sugar.Infof("poller started, interval=%v, batch=%d", p.interval, p.batchSize)
	for {
		select {
		case <-ctx.Done():
			p.sugar.Debug("context cancelled, exiting")
			return nil
		case <-tick.C:
			p.cycle(ctx)
			metrics.PollCycles.Inc()
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	info := p.manager.ContestInfo()
	now := p.now().Unix()
	windowEnd := info.StartTime + info.Duration

	// Clock or config skew can leave the contest marked finished while the
	// window is still open; heal it back to running.
	if info.State == model.StateFinished && windowEnd > now {
		p.sugar.Info("contest window still open, switching back to running")
		if err := p.manager.SetState(model.StateRunning); err != nil {
			p.sugar.With("err", err).Error("failed to reopen contest")
		}
		return
	}

	if info.State != model.StateRunning {
		p.sugar.Debug("contest not running, skipping fetch")
		return
	}

	switch {
	case info.StartTime <= now && now <= windowEnd:
		subs, err := p.judge.RecentStatus(ctx, p.batchSize)
		if err != nil {
			p.sugar.With("err", err).Error("failed to fetch recent submissions")
			return
		}
		metrics.SubmissionsFetched.Add(float64(len(subs)))
		if len(subs) > 0 {
			accepted := p.manager.ProcessSubmissions(subs)
			p.sugar.Debugf("processed %d submissions, %d accepted", len(subs), accepted)
		}
	case now > windowEnd:
		p.sugar.Info("contest window elapsed, marking finished")
		if err := p.manager.SetState(model.StateFinished); err != nil {
			p.sugar.With("err", err).Error("failed to finish contest")
		}
	}
}
