package zaplog

import (
	"time"

	"go.uber.org/zap"
)

type Observer struct {
	log *zap.Logger
}

// New returns an Observer writing to l. A nil l discards everything.
func New(l *zap.Logger) *Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Observer{log: l}
}

func (o *Observer) OwnerLive(name string) {
	o.log.Debug("owner live", zap.String("owner", name))
}

func (o *Observer) Acquired(name string, count int) {
	o.log.Debug("reference acquired", zap.String("owner", name), zap.Int("count", count))
}

func (o *Observer) Released(name string, count int) {
	o.log.Debug("reference released", zap.String("owner", name), zap.Int("count", count))
}

func (o *Observer) Disposed(name string, dur time.Duration, err error, panicked bool) {
	if err != nil {
		o.log.Error("owner dispose failed",
			zap.String("owner", name),
			zap.Duration("duration", dur),
			zap.Bool("panicked", panicked),
			zap.Error(err))
		return
	}
	o.log.Info("owner disposed", zap.String("owner", name), zap.Duration("duration", dur))
}
