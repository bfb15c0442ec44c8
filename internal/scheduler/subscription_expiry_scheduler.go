package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/bizmarket-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const defaultExpirySpec = "0 * * * *"

// SubscriptionExpirer is the part of SubscriptionService the sweep needs
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// SubscriptionExpiryScheduler 만료된 프리미엄 구독 비활성화 스케줄러
type SubscriptionExpiryScheduler struct {
	cron    *cron.Cron
	expirer SubscriptionExpirer
	spec    string
	timeout time.Duration
	now     func() time.Time
}

// NewSubscriptionExpiryScheduler spec 은 5필드 cron 표현식 (기본: 매시 정각)
func NewSubscriptionExpiryScheduler(expirer SubscriptionExpirer, spec string) *SubscriptionExpiryScheduler {
	if spec == "" {
		spec = defaultExpirySpec
	}
	return &SubscriptionExpiryScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: expirer,
		spec:    spec,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// Start 스케줄러 시작
func (s *SubscriptionExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for subscription expiry", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Subscription expiry scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce performs a single sweep
func (s *SubscriptionExpiryScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	expired, err := s.expirer.ExpireDue(ctx, s.now())
	if err != nil {
		logger.Error("Subscription expiry sweep failed", err, map[string]interface{}{
			"expired": expired,
		})
		return
	}
	if expired > 0 {
		logger.Info("Expired premium subscriptions", map[string]interface{}{
			"expired": expired,
		})
	}
}

// Stop waits for a running sweep to finish
func (s *SubscriptionExpiryScheduler) Stop() {
	logger.Info("Stopping subscription expiry scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Subscription expiry scheduler stopped")
}
