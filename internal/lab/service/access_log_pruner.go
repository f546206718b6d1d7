package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
)

// AccessLogPruner trims the tap history under akses/rfid.  Entries are keyed
// by their unix-second timestamp, so a prune drops every key below
// now-retention, truncated to the second.  Credentials are never touched:
// a card registered years ago stays valid, only its old taps go.
//
// With RetentionDays 0 the pruner never starts and the log is kept whole.
type AccessLogPruner struct {
	store     store.CredentialStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	RetentionDays int // days of taps to keep; 0 keeps everything
	IntervalHours int // defaults to 6

	// Now overrides the clock; tests pin it next to fixed tap timestamps.
	Now func() time.Time
}

func NewAccessLogPruner(s store.CredentialStore, cfg PrunerConfig, logger *zap.Logger) *AccessLogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccessLogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       cfg.Now,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Cutoff is the oldest tap time that survives a prune run now.
func (p *AccessLogPruner) Cutoff() time.Time {
	return p.now().Add(-p.retention).Truncate(time.Second)
}

// PruneOnce deletes taps recorded before Cutoff and reports how many went.
// It is a no-op when retention is disabled.
func (p *AccessLogPruner) PruneOnce(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.Cutoff()
	deleted, err := p.store.PruneAccessLogsOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("access log prune failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("access log pruned",
			zap.Int64("deleted", deleted), zap.Int64("cutoff_unix", cutoff.Unix()))
	}
	return deleted, nil
}

// Start prunes once, then again every interval until ctx ends or Stop.
func (p *AccessLogPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("access log retention unlimited; pruner idle")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("access log pruner started",
		zap.Duration("retention", p.retention), zap.Duration("interval", p.interval))
}

func (p *AccessLogPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *AccessLogPruner) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		// errors are logged in PruneOnce; the next tick retries
		_, _ = p.PruneOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
