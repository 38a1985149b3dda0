package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/notify"
)

// Scheduler 定时驱动两件事：周期性刷新 feed、每天早上发日报邮件
type Scheduler struct {
	cron   *cron.Cron
	orch   *digest.Orchestrator
	mailer *notify.Mailer
	log    logging.Logger
}

func New(refreshSpec, emailSpec string, orch *digest.Orchestrator, mailer *notify.Mailer, log logging.Logger) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:   c,
		orch:   orch,
		mailer: mailer,
		log:    log,
	}

	if _, err := c.AddFunc(refreshSpec, s.refreshJob); err != nil {
		return nil, err
	}
	if mailer.Enabled() {
		if _, err := c.AddFunc(emailSpec, s.emailJob); err != nil {
			return nil, err
		}
	} else {
		log.Info("scheduler: mailer not configured, daily digest email disabled")
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮刷新，避免与用户首次打开页面的请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.refreshJob()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次刷新入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.refreshJob()
}

func (s *Scheduler) refreshJob() {
	s.log.Info("scheduler: refresh job started")
	items := s.orch.Refresh(context.Background())
	s.log.Infof("scheduler: refresh job done, feed has %d items", len(items))
}

func (s *Scheduler) emailJob() {
	ctx := context.Background()
	items := s.orch.Refresh(ctx)

	id, err := s.mailer.SendDigest(ctx, items, digest.NextShow(time.Now()))
	if err != nil {
		s.log.Errorf("scheduler: send digest email: %v", err)
		return
	}
	s.log.Infof("scheduler: digest email sent, id=%s items=%d", id, len(items))
}
