package backoff

import (
	"context"
	"testing"
	"time"
)

func TestPolicyDelayBounds(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Cap: time.Second}

	tests := []struct {
		name    string
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{"first attempt", 0, 100 * time.Millisecond, 200 * time.Millisecond},
		{"second attempt", 1, 200 * time.Millisecond, 300 * time.Millisecond},
		{"third attempt", 2, 400 * time.Millisecond, 500 * time.Millisecond},
		{"capped", 10, time.Second, time.Second + 100*time.Millisecond},
		{"negative attempt treated as zero", -3, 100 * time.Millisecond, 200 * time.Millisecond},
		{"huge attempt does not overflow", 500, time.Second, time.Second + 100*time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Jitter is random, so sample a few times.
			for i := 0; i < 20; i++ {
				d := p.Delay(tt.attempt)
				if d < tt.min || d > tt.max {
					t.Fatalf("Delay(%d) = %v, want in [%v, %v]", tt.attempt, d, tt.min, tt.max)
				}
			}
		})
	}
}

func TestPolicySleepHonorsContext(t *testing.T) {
	p := Policy{Base: 10 * time.Second, Cap: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Sleep(ctx, 3)
	if err == nil {
		t.Fatal("Sleep with cancelled context returned nil error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Sleep blocked %v after cancellation", elapsed)
	}
}

func TestPolicySleepCompletes(t *testing.T) {
	p := Policy{Base: time.Millisecond, Cap: 2 * time.Millisecond}
	if err := p.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
}
