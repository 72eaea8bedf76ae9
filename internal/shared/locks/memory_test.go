package locks

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLockerExcludesSecondHolder(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, Key("resident", "r1", "type", "W2"), time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}

	_, ok, err = l.Acquire(ctx, Key("resident", "r1", "type", "W2"), time.Minute)
	if err != nil {
		t.Fatalf("Acquire second: %v", err)
	}
	if ok {
		t.Fatalf("expected second acquire to fail while held")
	}

	release(ctx)

	release2, ok, err := l.Acquire(ctx, Key("resident", "r1", "type", "W2"), time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
	release2(ctx)
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	r1, ok, err := l.Acquire(ctx, Key("resident", "r1", "type", "W2"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire r1: ok=%v err=%v", ok, err)
	}
	defer r1(ctx)

	r2, ok, err := l.Acquire(ctx, Key("resident", "r1", "type", "PAYSTUB"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected different type to lock independently: ok=%v err=%v", ok, err)
	}
	defer r2(ctx)
}

func TestMemoryLockerExpiredLockCanBeTaken(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, "k", time.Nanosecond)
	if err != nil || !ok {
		t.Fatalf("Acquire: ok=%v err=%v", ok, err)
	}

	time.Sleep(5 * time.Millisecond)

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if !ok {
		t.Fatalf("expected expired lock to be reacquirable")
	}
	release(ctx)
}
