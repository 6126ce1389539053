package cmap

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()

	if _, ok := m.Get("a"); ok {
		t.Error("Get on empty map should miss")
	}
	m.GetOrCreate("a", func() int { return 1 })
	m.GetOrCreate("b", func() int { return 2 })
	if v := m.GetOrCreate("a", func() int { return 3 }); v != 1 {
		t.Errorf("GetOrCreate(a) on existing key = %d, want 1", v)
	}

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	m.Delete("a")
	m.Delete("missing")
	if _, ok := m.Get("a"); ok {
		t.Error("a should be deleted")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestMap_GetOrCreate(t *testing.T) {
	m := New[string, *int]()
	var created atomic.Int32
	create := func() *int {
		created.Add(1)
		v := 7
		return &v
	}

	var wg sync.WaitGroup
	results := make([]*int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.GetOrCreate("shared", create)
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("create ran %d times, want 1", created.Load())
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d is a different value", i)
		}
	}
}

func TestMap_Concurrent(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := strconv.Itoa(g) + "-" + strconv.Itoa(i)
				m.GetOrCreate(key, func() int { return i })
				if _, ok := m.Get(key); !ok {
					t.Errorf("missing %s", key)
					return
				}
				if i%2 == 0 {
					m.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if got := m.Count(); got != 8*250 {
		t.Errorf("Count() = %d, want %d", got, 8*250)
	}
}
