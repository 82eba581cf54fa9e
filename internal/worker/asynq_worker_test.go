package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/queue"
	"github.com/polyva-3d/internal/service"

	"github.com/hibiken/asynq"
)

type fakeMailer struct {
	sent []service.OTPMessage
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, msg service.OTPMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeRemover struct {
	keys []string
}

func (r *fakeRemover) Delete(_ context.Context, keys ...string) error {
	r.keys = append(r.keys, keys...)
	return nil
}

func TestHandleOTPEmail(t *testing.T) {
	mailer := &fakeMailer{}
	consumer := &Consumer{mailer: mailer}

	task, err := queue.NewOTPEmailTask(queue.OTPEmailPayload{
		Email:         "a@b.com",
		Code:          "123456",
		Purpose:       constants.OTPPurposeVerifyEmail,
		Locale:        "en",
		ExpireMinutes: 5,
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOTPEmail(context.Background(), task); err != nil {
		t.Fatalf("handle otp email failed: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Code != "123456" || mailer.sent[0].ExpireMinutes != 5 {
		t.Fatalf("unexpected sent messages: %+v", mailer.sent)
	}
}

func TestHandleOTPEmailErrors(t *testing.T) {
	bad := asynq.NewTask(queue.TaskSendOTPEmail, []byte("{not json"))
	err := (&Consumer{mailer: &fakeMailer{}}).handleOTPEmail(context.Background(), bad)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should skip retry, got %v", err)
	}

	task, _ := queue.NewOTPEmailTask(queue.OTPEmailPayload{Email: "a@b.com", Code: "1"})
	sendErr := errors.New("smtp down")
	err = (&Consumer{mailer: &fakeMailer{err: sendErr}}).handleOTPEmail(context.Background(), task)
	if !errors.Is(err, sendErr) {
		t.Fatalf("transport errors should be retried, got %v", err)
	}

	err = (&Consumer{}).handleOTPEmail(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing mailer should skip retry, got %v", err)
	}
}

func TestHandleStorageCleanup(t *testing.T) {
	remover := &fakeRemover{}
	consumer := &Consumer{files: remover}
	task, err := queue.NewStorageCleanupTask(queue.StorageCleanupPayload{Keys: []string{"generation/a.png", "avatar/b.png"}})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleStorageCleanup(context.Background(), task); err != nil {
		t.Fatalf("handle cleanup failed: %v", err)
	}
	if len(remover.keys) != 2 {
		t.Fatalf("unexpected removed keys: %v", remover.keys)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(nil, &Consumer{}); err == nil {
		t.Fatalf("expected nil config to be rejected")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}); err == nil {
		t.Fatalf("expected disabled queue to be rejected")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected nil consumer to be rejected")
	}
}

func TestServiceLifecycleWithoutServer(t *testing.T) {
	var svc *Service
	if svc.Name() != "worker" {
		t.Fatalf("unexpected name: %s", svc.Name())
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop on nil service should be a no-op: %v", err)
	}
	if err := (&Service{}).Start(context.Background()); err == nil {
		t.Fatalf("expected uninitialized worker to fail on start")
	}
}
