package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisStreamProviderSend(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	p, err := NewRedisStreamProvider("", rdb, "outbound")
	if err != nil {
		t.Fatalf("NewRedisStreamProvider() error = %v", err)
	}
	if p.Name() != "redis:outbound" {
		t.Fatalf("Name() = %q, want redis:outbound", p.Name())
	}

	receipt, err := p.Send(context.Background(), testMessage)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if receipt.MessageID == "" {
		t.Fatal("receipt should carry the stream entry id")
	}

	entries, err := rdb.XRange(context.Background(), "outbound", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ID != receipt.MessageID {
		t.Fatalf("entry id = %q, want %q", entries[0].ID, receipt.MessageID)
	}
	if entries[0].Values["recipient"] != testMessage.Recipient {
		t.Fatalf("recipient = %v, want %q", entries[0].Values["recipient"], testMessage.Recipient)
	}
	if entries[0].Values["subject"] != testMessage.Subject {
		t.Fatalf("subject = %v, want %q", entries[0].Values["subject"], testMessage.Subject)
	}
}

func TestRedisStreamProviderSendUnavailable(t *testing.T) {
	t.Parallel()

	rdb, mr := newTestRedisClient(t)
	mr.Close()

	p, err := NewRedisStreamProvider("stream", rdb, "outbound")
	if err != nil {
		t.Fatalf("NewRedisStreamProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), testMessage)
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Send() error = %v, want ProviderError", err)
	}
	if !IsTransient(err) {
		t.Fatal("unavailable redis should be transient")
	}
}

func TestNewRedisStreamProviderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStreamProvider("x", nil, "outbound"); err == nil {
		t.Fatal("expected error for nil client")
	}

	rdb, _ := newTestRedisClient(t)
	if _, err := NewRedisStreamProvider("x", rdb, " "); err == nil {
		t.Fatal("expected error for empty stream")
	}
}

func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb, mr
}
