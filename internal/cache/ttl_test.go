package cache

import (
	"sync"
	"testing"
	"time"
)

func TestTTL_PutGet(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Put("a", 1)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Errorf("Get(missing) reported present")
	}
}

func TestTTL_LazyExpiry(t *testing.T) {
	now := time.Now()
	c := NewTTL[string, int](time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Put("a", 1)

	// Move past the expiry: the entry must read as absent and be purged.
	now = now.Add(time.Minute + time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry still readable")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not purged on lookup, Len = %d", c.Len())
	}
}

func TestTTL_PutRefreshesExpiry(t *testing.T) {
	now := time.Now()
	c := NewTTL[string, int](time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Put("a", 1)
	now = now.Add(45 * time.Second)
	c.Put("a", 2)
	now = now.Add(45 * time.Second) // 90s after first put, 45s after second

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("refreshed entry gone: got %d, %v", v, ok)
	}
}

func TestWindow_SeenRemember(t *testing.T) {
	w := NewWindow(time.Minute)

	if w.Seen("m1") {
		t.Fatalf("Seen(m1) true before Remember")
	}
	w.Remember("m1")
	if !w.Seen("m1") {
		t.Errorf("Seen(m1) false after Remember")
	}
}

func TestWindow_CheckAndRemember(t *testing.T) {
	w := NewWindow(time.Minute)

	if w.CheckAndRemember("m1") {
		t.Fatalf("first CheckAndRemember reported duplicate")
	}
	if !w.CheckAndRemember("m1") {
		t.Errorf("second CheckAndRemember did not report duplicate")
	}
}

// Redelivery of the same identifier may race with the first delivery's
// in-flight processing; exactly one caller must win.
func TestWindow_ConcurrentDuplicates(t *testing.T) {
	w := NewWindow(time.Minute)

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !w.CheckAndRemember("m1") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestWindow_ExpiryReopens(t *testing.T) {
	now := time.Now()
	w := NewWindow(10 * time.Minute)
	w.ids.SetClock(func() time.Time { return now })

	w.Remember("m1")
	now = now.Add(10*time.Minute + time.Second)

	if w.Seen("m1") {
		t.Errorf("Seen(m1) true after the window elapsed")
	}
}
