package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-scriptform/pkg/model"
)

type countingObserver struct {
	mu          sync.Mutex
	hits        int
	misses      int
	invalidated []int64
}

func (o *countingObserver) CacheHit(int64) {
	o.mu.Lock()
	o.hits++
	o.mu.Unlock()
}

func (o *countingObserver) CacheMiss(int64) {
	o.mu.Lock()
	o.misses++
	o.mu.Unlock()
}

func (o *countingObserver) CacheInvalidated(pk int64) {
	o.mu.Lock()
	o.invalidated = append(o.invalidated, pk)
	o.mu.Unlock()
}

func sampleEntry(t *testing.T, pk int64) Entry {
	t.Helper()
	master, err := model.NewForm(model.IdentityField(pk))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return Entry{
		Groups:  model.NewGroupForms("/run", model.GroupForm{Name: "Required", Form: master}),
		Master:  master,
		BuiltAt: time.Unix(100, 0),
	}
}

func TestFormCache_StoreGetInvalidate(t *testing.T) {
	observer := &countingObserver{}
	c := New(WithObserver(observer))

	if _, ok := c.Get(1); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Store(1, sampleEntry(t, 1))
	c.Store(3, sampleEntry(t, 3))
	c.Store(2, sampleEntry(t, 2))

	entry, ok := c.Get(1)
	if !ok {
		t.Fatalf("expected hit")
	}
	if pk, _ := entry.Master.ScriptID(); pk != 1 {
		t.Fatalf("unexpected entry for key 1: %d", pk)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, c.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	if !c.Invalidate(1) {
		t.Fatalf("expected invalidate to report existing entry")
	}
	if c.Invalidate(1) {
		t.Fatalf("second invalidate should report nothing removed")
	}
	if _, ok := c.Get(1); ok {
		t.Fatalf("expected miss after invalidate")
	}

	if removed := c.Purge(); removed != 2 {
		t.Fatalf("expected 2 purged entries, got %d", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge")
	}

	if observer.hits != 1 || observer.misses != 2 {
		t.Fatalf("unexpected hit/miss counts %d/%d", observer.hits, observer.misses)
	}
	if len(observer.invalidated) != 3 {
		t.Fatalf("expected 3 invalidation events, got %v", observer.invalidated)
	}
}

func TestFormCache_ConcurrentAccess(t *testing.T) {
	c := New()
	entry := sampleEntry(t, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pk := int64(i % 4)
			c.Store(pk, entry)
			c.Get(pk)
			if i%5 == 0 {
				c.Invalidate(pk)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 4 {
		t.Fatalf("cache holds more keys than written: %d", c.Len())
	}
}

func TestFormCache_StoreIfRejectsInvalidatedGeneration(t *testing.T) {
	c := New()

	gen := c.Generation(1)
	if !c.StoreIf(1, gen, sampleEntry(t, 1)) {
		t.Fatalf("expected store with current generation")
	}

	gen = c.Generation(1)
	other := c.Generation(2)
	c.Invalidate(1)
	if c.StoreIf(1, gen, sampleEntry(t, 1)) {
		t.Fatalf("entry built before invalidation must not be stored")
	}
	if !c.StoreIf(2, other, sampleEntry(t, 2)) {
		t.Fatalf("invalidating key 1 must not affect key 2")
	}
	if !c.StoreIf(1, c.Generation(1), sampleEntry(t, 1)) {
		t.Fatalf("expected store with refreshed generation")
	}

	gen = c.Generation(2)
	c.Purge()
	if c.StoreIf(2, gen, sampleEntry(t, 2)) {
		t.Fatalf("entry built before purge must not be stored")
	}
	if gen == c.Generation(2) {
		t.Fatalf("purge must advance every generation")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got keys %v", c.Keys())
	}
}
