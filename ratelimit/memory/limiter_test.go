package memorylimiter

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	l := New(map[string]Limit{"check": {Limit: 2, Window: time.Minute}})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := l.Allow(ctx, "check", "u1"); err != nil || !ok {
			t.Fatalf("hit %d: expected allow, got ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "check", "u1"); ok {
		t.Fatal("expected third hit denied")
	}
	if ok, _ := l.Allow(ctx, "check", "u2"); !ok {
		t.Fatal("expected other key unaffected")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := l.Allow(ctx, "check", "u1"); !ok {
		t.Fatal("expected window to slide")
	}
}

func TestLimiter_RequiresBucketAndKey(t *testing.T) {
	l := New(nil)
	if _, err := l.Allow(context.Background(), "", "k"); err == nil {
		t.Fatal("expected error")
	}
}
