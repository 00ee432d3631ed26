package scheduler

import (
	"context"

	"stock-insight-agent/internal/advisor/config"
	"stock-insight-agent/internal/advisor/dto"
	"stock-insight-agent/internal/advisor/service"
	"stock-insight-agent/pkg/common"
	"stock-insight-agent/pkg/logger"
	redisPkg "stock-insight-agent/pkg/redis"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the advisory pipeline on the configured cron expression.
// A redis lock keeps concurrent runs out even when the trigger fires while
// a manual run is still in flight.
type Scheduler struct {
	cfg            *config.Config
	logger         *logger.Logger
	advisorService service.AdvisorService
	redisClient    *redisPkg.Client
	cron           *cron.Cron
}

// New creates a new Scheduler.
func New(cfg *config.Config, log *logger.Logger, advisorService service.AdvisorService, redisClient *redisPkg.Client) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		logger:         log,
		advisorService: advisorService,
		redisClient:    redisClient,
		cron:           cron.New(),
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Scheduler.CronSpec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", logger.StringField("cron_spec", s.cfg.Scheduler.CronSpec))
	return nil
}

// Stop halts scheduling and waits for a running entry to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	ok, err := s.acquireLock(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire run lock", logger.ErrorField(err))
		return
	}
	if !ok {
		s.logger.Warn("Another run is in progress, skipping scheduled run")
		return
	}
	defer s.releaseLock(ctx)

	result, err := s.advisorService.RunPeriod(ctx, dto.RunOptions{Trigger: common.RunTriggerSchedule})
	if err != nil {
		s.logger.Error("Scheduled run failed", logger.ErrorField(err))
		return
	}
	s.logger.Info("Scheduled run finished",
		logger.StringField("period", result.Period),
		logger.StringField("status", result.Status),
	)
}

func (s *Scheduler) acquireLock(ctx context.Context) (bool, error) {
	if s.redisClient == nil {
		return true, nil
	}
	return s.redisClient.SetNX(ctx, common.RedisKeyRunLock, "1", common.RunLockTTL).Result()
}

func (s *Scheduler) releaseLock(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, common.RedisKeyRunLock).Err(); err != nil {
		s.logger.Error("Failed to release run lock", logger.ErrorField(err))
	}
}
