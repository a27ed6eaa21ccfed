package clock

import (
	"testing"
	"time"
)

func TestFakeNowFrozen(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(3 * time.Second)
	if !c.Now().Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v", c.Now())
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	ch := c.After(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("waiter fired before Advance")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ch:
		t.Fatal("waiter fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter did not fire at its deadline")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	select {
	case <-c.After(0):
	case <-time.After(time.Second):
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeBlockUntil(t *testing.T) {
	c := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		c.BlockUntil(1)
		close(done)
	}()

	c.After(time.Minute)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BlockUntil did not observe the waiter")
	}
}
