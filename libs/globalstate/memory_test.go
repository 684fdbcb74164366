package globalstate

import (
	"context"
	"testing"
)

func TestMemoryStore_EmptyIsNotSingle60Hz(t *testing.T) {
	m := NewMemoryStore()
	single, err := m.IsSingle60Hz(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single {
		t.Error("expected no 60Hz holders on a fresh store")
	}
}

func TestMemoryStore_AcquireThenRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.Acquire60Hz(ctx, "obj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	single, err := m.IsSingle60Hz(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !single {
		t.Error("expected single-60Hz after acquire")
	}

	if err := m.Release60Hz(ctx, "obj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	single, err = m.IsSingle60Hz(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single {
		t.Error("expected no 60Hz holders after release")
	}
}

func TestMemoryStore_MultipleHoldersOutliveOneRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.Acquire60Hz(ctx, "obj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Acquire60Hz(ctx, "obj-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Release60Hz(ctx, "obj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	single, err := m.IsSingle60Hz(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !single {
		t.Error("expected obj-2 to still hold the 60Hz flag")
	}
}

func TestMemoryStore_ReleaseUnknownIsNoOp(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Release60Hz(context.Background(), "never-acquired"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
