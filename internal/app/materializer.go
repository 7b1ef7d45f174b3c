package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/service"
)

// Materializer keeps open-ended recurring schedules materialized up to
// the rolling horizon by running the service's horizon extension
// periodically.
type Materializer struct {
	scheduleService *service.ScheduleService
	interval        time.Duration
	logger          *zap.Logger
	stopChan        chan struct{}
}

func NewMaterializer(scheduleService *service.ScheduleService, interval time.Duration, logger *zap.Logger) *Materializer {
	return &Materializer{
		scheduleService: scheduleService,
		interval:        interval,
		logger:          logger,
		stopChan:        make(chan struct{}),
	}
}

// Start launches the background loop. The first run happens immediately
// so a restarted service catches up without waiting a full interval.
func (m *Materializer) Start(ctx context.Context) {
	m.logger.Info("Starting horizon materializer", zap.Duration("interval", m.interval))
	go m.run(ctx)
}

// Stop terminates the background loop.
func (m *Materializer) Stop() {
	m.logger.Info("Stopping horizon materializer")
	close(m.stopChan)
}

func (m *Materializer) run(ctx context.Context) {
	m.extend(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.extend(ctx)
		case <-m.stopChan:
			m.logger.Info("Horizon materializer stopped")
			return
		case <-ctx.Done():
			m.logger.Info("Horizon materializer cancelled")
			return
		}
	}
}

func (m *Materializer) extend(ctx context.Context) {
	if err := m.scheduleService.ExtendHorizon(ctx); err != nil {
		m.logger.Error("Horizon extension failed", zap.Error(err))
	}
}
