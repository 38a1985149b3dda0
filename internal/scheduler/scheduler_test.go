package scheduler

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/primendon/dailycut/internal/cache"
	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/notify"
	"github.com/primendon/dailycut/internal/storage"
)

func testLogger() logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("service", "test")
}

func testOrchestrator() *digest.Orchestrator {
	return digest.New(digest.Options{
		Cache:    cache.NewMemory(),
		Settings: storage.NewMemorySettings(),
		Log:      testLogger(),
	})
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	log := testLogger()
	mailer := notify.NewMailer("", "", "", nil, log)

	if _, err := New("not a cron spec", "0 7 * * *", testOrchestrator(), mailer, log); err == nil {
		t.Fatal("expected error for invalid refresh spec")
	}
}

func TestNewSkipsEmailJobWithoutMailer(t *testing.T) {
	log := testLogger()
	mailer := notify.NewMailer("", "", "", nil, log)

	// 邮件任务没启用时，坏的 email spec 也不应报错
	s, err := New("*/30 * * * *", "not a cron spec", testOrchestrator(), mailer, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil {
		t.Fatal("scheduler is nil")
	}
}

func TestRunOnceWithNoSources(t *testing.T) {
	log := testLogger()
	mailer := notify.NewMailer("", "", "", nil, log)

	s, err := New("*/30 * * * *", "0 7 * * *", testOrchestrator(), mailer, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 没有任何数据源时单次刷新也要正常跑完
	s.RunOnce()
}
