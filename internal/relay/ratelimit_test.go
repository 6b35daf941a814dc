package relay

import "testing"

func TestConsoleLimiterCountsDrops(t *testing.T) {
	cl := newConsoleLimiter(1, 2)

	allowed := 0
	for i := 0; i < 10; i++ {
		if cl.allow() {
			allowed++
		}
	}

	if allowed == 0 || allowed > 2 {
		t.Errorf("expected burst-bounded allowance, got %d", allowed)
	}
	if dropped := cl.takeDropped(); dropped != int64(10-allowed) {
		t.Errorf("dropped = %d, want %d", dropped, 10-allowed)
	}
	if cl.takeDropped() != 0 {
		t.Error("takeDropped must reset the counter")
	}
}

func TestConsoleLimiterDisabled(t *testing.T) {
	cl := newConsoleLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !cl.allow() {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}
