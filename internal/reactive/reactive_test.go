package reactive

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestCellSetBumpsVersion(t *testing.T) {
	c := NewCell(1)
	if v, ver := c.Get(); v != 1 || ver != 0 {
		t.Fatalf("unexpected initial state %d@%d", v, ver)
	}
	if ver := c.Set(5); ver != 1 {
		t.Fatalf("expected version 1, got %d", ver)
	}
	if ver := c.Update(func(n int) int { return n * 2 }); ver != 2 {
		t.Fatalf("expected version 2, got %d", ver)
	}
	if v, ver := c.Get(); v != 10 || ver != 2 || c.Version() != 2 {
		t.Fatalf("unexpected state %d@%d", v, ver)
	}
}

func TestCellNotifiesInSubscriptionOrder(t *testing.T) {
	c := NewCell("a")
	var calls []string
	c.Subscribe(func(v string, ver uint64) { calls = append(calls, "first:"+v) })
	c.Subscribe(func(v string, ver uint64) { calls = append(calls, "second:"+v) })
	c.Set("b")
	want := []string{"first:b", "second:b"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
}

func TestCellSubscriberCanReadCell(t *testing.T) {
	c := NewCell(0)
	var seen uint64
	c.Subscribe(func(_ int, ver uint64) {
		_, current := c.Get()
		seen = current
		if current != ver {
			t.Errorf("expected subscriber to observe version %d, got %d", ver, current)
		}
	})
	c.Set(3)
	if seen != 1 {
		t.Fatalf("subscriber did not run")
	}
}

func TestCellUpdateMayReadCell(t *testing.T) {
	c := NewCell(2)
	done := make(chan uint64, 1)
	go func() {
		done <- c.Update(func(n int) int {
			_, ver := c.Get()
			return n + int(ver) + 1
		})
	}()
	select {
	case ver := <-done:
		if v, _ := c.Get(); v != 3 || ver != 1 {
			t.Fatalf("unexpected state %d@%d", v, ver)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("update reading the cell did not return")
	}
}

func TestCellUpdateRetriesAfterConcurrentWrite(t *testing.T) {
	c := NewCell(1)
	calls := 0
	ver := c.Update(func(n int) int {
		calls++
		if calls == 1 {
			c.Set(10)
		}
		return n * 2
	})
	if calls != 2 {
		t.Fatalf("expected fn to run twice, got %d", calls)
	}
	if v, _ := c.Get(); v != 20 || ver != 2 {
		t.Fatalf("unexpected state %d@%d", v, ver)
	}
}

func TestCellUnsubscribe(t *testing.T) {
	c := NewCell(0)
	var a, b int
	stopA := c.Subscribe(func(int, uint64) { a++ })
	c.Subscribe(func(int, uint64) { b++ })
	c.Set(1)
	stopA()
	stopA()
	c.Set(2)
	if a != 1 || b != 2 {
		t.Fatalf("unexpected notification counts a=%d b=%d", a, b)
	}
	if c.Subscribers() != 1 {
		t.Fatalf("expected one subscriber left, got %d", c.Subscribers())
	}
}

func TestMemoRecomputesOncePerVersion(t *testing.T) {
	c := NewCell(2)
	m := NewMemo(c, func(n int) int { return n * n })
	for i := 0; i < 3; i++ {
		if v, ver := m.Get(); v != 4 || ver != 0 {
			t.Fatalf("unexpected memo value %d@%d", v, ver)
		}
	}
	if m.Computations() != 1 {
		t.Fatalf("expected a single computation, got %d", m.Computations())
	}
	c.Set(3)
	if v, ver := m.Get(); v != 9 || ver != 1 {
		t.Fatalf("unexpected memo value %d@%d", v, ver)
	}
	if m.Computations() != 2 {
		t.Fatalf("expected recompute after change, got %d", m.Computations())
	}
}

func TestMemoSharesValueAcrossConsumers(t *testing.T) {
	c := NewCell([]int{1, 2, 3})
	m := NewMemo(c, func(in []int) *[]int {
		out := append([]int(nil), in...)
		return &out
	})
	first, _ := m.Get()

	var wg sync.WaitGroup
	results := make([]*[]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.Get()
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != first {
			t.Fatalf("consumer %d observed a different value", i)
		}
	}
	if m.Computations() != 1 {
		t.Fatalf("expected one computation, got %d", m.Computations())
	}
}

func TestMemoInsideSubscriberSeesNewVersion(t *testing.T) {
	c := NewCell(1)
	m := NewMemo(c, func(n int) int { return n + 100 })
	var got []int
	c.Subscribe(func(_ int, ver uint64) {
		v, memoVer := m.Get()
		if memoVer != ver {
			t.Errorf("memo version %d, cell version %d", memoVer, ver)
		}
		got = append(got, v)
	})
	c.Set(2)
	c.Set(3)
	if !reflect.DeepEqual(got, []int{102, 103}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestCellConcurrentWriters(t *testing.T) {
	c := NewCell(0)
	var mu sync.Mutex
	notified := 0
	c.Subscribe(func(int, uint64) {
		mu.Lock()
		notified++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()
	if v, ver := c.Get(); v != 50 || ver != 50 {
		t.Fatalf("unexpected final state %d@%d", v, ver)
	}
	if notified != 50 {
		t.Fatalf("expected 50 notifications, got %d", notified)
	}
}
