package collector

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/primendon/dailycut/internal/logging"
)

// helper 返回丢弃输出的测试 logger
func testLogger() logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("service", "test")
}

func TestBudgetAllowsUpToConfiguredCalls(t *testing.T) {
	b := NewBudget(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("call %d should be within budget", i+1)
		}
	}
	if b.Allow() {
		t.Fatalf("4th call should exceed budget of 3")
	}
}

func TestBudgetUnlimitedWhenZeroOrNil(t *testing.T) {
	b := NewBudget(0, time.Hour)
	for i := 0; i < 100; i++ {
		if !b.Allow() {
			t.Fatalf("zero-call budget must be unlimited, denied at call %d", i+1)
		}
	}

	var nb *Budget
	if !nb.Allow() {
		t.Fatalf("nil budget must be unlimited")
	}
}

func TestBudgetRefillsOverWindow(t *testing.T) {
	// 100ms 窗口 2 次调用，耗尽后等一个窗口应该恢复
	b := NewBudget(2, 100*time.Millisecond)
	if !b.Allow() || !b.Allow() {
		t.Fatalf("first two calls should pass")
	}
	if b.Allow() {
		t.Fatalf("third immediate call should be denied")
	}
	time.Sleep(120 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("budget should refill after the window")
	}
}

func TestSourceErrorWrapsCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	e := &SourceError{Source: "podcasts", Kind: KindPodcastSummary, Reason: "fetch feed", Err: cause}

	if e.Unwrap() != cause {
		t.Fatalf("Unwrap should return the cause")
	}
	msg := e.Error()
	if msg == "" {
		t.Fatalf("error message should not be empty")
	}

	noCause := &SourceError{Source: "youtube_interviews", Kind: KindInterview, Reason: "deadline exceeded"}
	if noCause.Error() == "" {
		t.Fatalf("error message without cause should not be empty")
	}
}
