package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvancesAndRecords(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	c.Sleep(200 * time.Millisecond)
	c.Sleep(300 * time.Millisecond)

	if got := c.Now().Sub(start); got != 500*time.Millisecond {
		t.Fatalf("elapsed = %v, want 500ms", got)
	}
	if got := c.Slept(); got != 500*time.Millisecond {
		t.Fatalf("Slept() = %v, want 500ms", got)
	}
	if n := len(c.Sleeps()); n != 2 {
		t.Fatalf("len(Sleeps()) = %d, want 2", n)
	}
}

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	tk := c.NewTicker(time.Second)
	defer tk.Stop()

	select {
	case <-tk.C:
		t.Fatal("ticker fired before Advance")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-tk.C:
	default:
		t.Fatal("ticker did not fire after Advance")
	}

	tk.Stop()
	c.Advance(5 * time.Second)
	select {
	case <-tk.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}
