package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[[]string](time.Hour, 0)
	defer c.Stop()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}

	c.Set("k", []string{"a", "b"})
	got, ok := c.Get("k")
	if !ok || len(got) != 2 || got[1] != "b" {
		t.Errorf("unexpected value %v (ok=%v)", got, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New[int](time.Minute, 0)
	defer c.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 1 {
		t.Errorf("expected expired entry removed on read, len=%d", c.Len())
	}

	c.cleanup()
	if c.Len() != 0 {
		t.Errorf("expected sweep to remove remaining entry, len=%d", c.Len())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New[int](time.Minute, time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestKey(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("expected part boundaries to affect the key")
	}
	if Key("x", "y") != Key("x", "y") {
		t.Error("expected stable key")
	}
	if len(Key("x")) != 64 {
		t.Errorf("expected hex sha256, got %q", Key("x"))
	}
}
