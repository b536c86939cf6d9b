package reqctx

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestTraceAlwaysGenerated(t *testing.T) {
	rc := New(nil, nil)
	if rc.TraceID == uuid.Nil {
		t.Fatal("trace id not generated")
	}
	if rc.TenantID != nil || rc.UserID != nil {
		t.Fatal("expected anonymous context")
	}
}

func TestAccessors(t *testing.T) {
	tenant := uuid.New()
	user := uuid.New()
	ctx := With(context.Background(), New(&user, &tenant))

	got, ok := TenantID(ctx)
	if !ok || got != tenant {
		t.Fatalf("tenant = %v, %v; want %v", got, ok, tenant)
	}
	got, ok = UserID(ctx)
	if !ok || got != user {
		t.Fatalf("user = %v, %v; want %v", got, ok, user)
	}
	if TraceID(ctx) == uuid.Nil {
		t.Fatal("trace id missing")
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := TenantID(ctx); ok {
		t.Fatal("unexpected tenant outside a request")
	}
	if TraceID(ctx) != uuid.Nil {
		t.Fatal("unexpected trace outside a request")
	}
	if LogFields(ctx) != nil {
		t.Fatal("unexpected fields outside a request")
	}
}

// Two concurrent requests must never observe each other's binding.
func TestConcurrentIsolation(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenant := uuid.New()
			ctx := With(context.Background(), New(nil, &tenant))
			for j := 0; j < 100; j++ {
				got, ok := TenantID(ctx)
				if !ok || got != tenant {
					t.Errorf("tenant binding leaked: got %v want %v", got, tenant)
					return
				}
			}
		}()
	}
	wg.Wait()
}
