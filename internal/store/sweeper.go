package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper periodically purges expired rows. Reads already treat
// expired rows as absent; the sweeper just keeps the tables from
// growing without bound.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(db *gorm.DB, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{db: db, interval: interval, log: log.Named("sweeper")}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	var purged int64
	for _, model := range []any{&Connection{}, &Game{}, &GameParticipant{}, &RosterEntry{}} {
		res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(model)
		if res.Error != nil {
			s.log.Warn("sweep failed", zap.Error(res.Error))
			continue
		}
		purged += res.RowsAffected
	}
	if purged > 0 {
		s.log.Info("purged expired rows", zap.Int64("rows", purged))
	}
}
