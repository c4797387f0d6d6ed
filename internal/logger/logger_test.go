package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
		}
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Error("level override not applied")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must fall back to a nop logger")
	}

	core, logs := observer.New(zap.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = WithJob(ctx, zap.NewNop(), "42")
	FromContext(ctx).Info("binding")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if got := entries[0].ContextMap()["job_id"]; got != "42" {
		t.Errorf("job_id = %v", got)
	}
}

func TestWithJob_Fallback(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithJob(context.Background(), zap.New(core), "7")
	FromContextOr(ctx, zap.NewNop()).Info("Index job started")

	if logs.Len() != 1 || logs.All()[0].ContextMap()["job_id"] != "7" {
		t.Fatalf("logs = %+v", logs.All())
	}
	if FromContextOr(context.Background(), nil) != nil {
		t.Error("FromContextOr must return the fallback")
	}
}
