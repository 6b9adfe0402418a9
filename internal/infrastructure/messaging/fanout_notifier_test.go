package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap/zaptest"
)

type recordingSink struct {
	got []*entity.Notification
	err error
}

func (s *recordingSink) Deliver(ctx context.Context, n *entity.Notification) error {
	s.got = append(s.got, n)
	return s.err
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	fan := NewFanoutNotifier().Add("failing", failing).Add("ok", ok)

	n := &entity.Notification{ID: "1", Title: "Milestone Unlocked for James!"}
	err := fan.Deliver(context.Background(), n)
	if err == nil || !strings.Contains(err.Error(), "failing: boom") {
		t.Fatalf("expected labelled error, got %v", err)
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Fatalf("expected both sinks to receive the notification, got %d and %d", len(failing.got), len(ok.got))
	}
}

func TestFanoutWithoutSinks(t *testing.T) {
	if err := NewFanoutNotifier().Deliver(context.Background(), &entity.Notification{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDisabledNATSNotifierIsNoop(t *testing.T) {
	log := logger.Wrap(zaptest.NewLogger(t))
	client := NewNATSClient(&config.NATSConfig{Enabled: false, SubjectPrefix: "donations"}, log)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if client.IsConnected() {
		t.Fatal("disabled client reports connected")
	}
	if got := client.Subject("milestones"); got != "donations.milestones" {
		t.Fatalf("subject = %q", got)
	}

	sink := NewNATSNotifier(client)
	if err := sink.Deliver(context.Background(), &entity.Notification{ID: "x"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := client.SubscribeRefresh(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	sink := NewLogNotifier(logger.Wrap(zaptest.NewLogger(t)))
	if err := sink.Deliver(context.Background(), &entity.Notification{ID: "1", Title: "t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
