package correlate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"notifyd/internal/domain"
)

func TestStore_InsertLookup(t *testing.T) {
	s := NewStore(0)
	meta := domain.CallbackMetadata{Message: "hello", CallbackCommand: "notepad"}

	if err := s.Insert("tag1", meta); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Lookup("tag1")
	if !ok {
		t.Fatal("expected entry for tag1")
	}
	if got.Message != "hello" || got.CallbackCommand != "notepad" {
		t.Errorf("unexpected metadata: %+v", got)
	}
}

func TestStore_LookupAbsent(t *testing.T) {
	s := NewStore(0)
	if _, ok := s.Lookup("never-inserted"); ok {
		t.Error("lookup of absent tag should miss silently")
	}
}

func TestStore_DuplicateInsert(t *testing.T) {
	s := NewStore(0)
	if err := s.Insert("tag1", domain.CallbackMetadata{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert("tag1", domain.CallbackMetadata{}); err == nil {
		t.Fatal("duplicate insert should error")
	}
}

func TestStore_NoEvictionByDefault(t *testing.T) {
	s := NewStore(0)
	if err := s.Insert("tag1", domain.CallbackMetadata{Message: "m"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := s.Lookup("tag1"); !ok {
		t.Error("entries must survive for the process lifetime without a TTL")
	}
}

func TestStore_TTLEviction(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	if err := s.Insert("tag1", domain.CallbackMetadata{}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := s.Lookup("tag1"); ok {
		t.Error("entry should be evicted after the TTL")
	}
}

func TestStore_ConcurrentInsertsDistinct(t *testing.T) {
	s := NewStore(0)
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Insert(fmt.Sprintf("tag-%d", i), domain.CallbackMetadata{Message: fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
	if s.Len() != n {
		t.Errorf("expected %d entries, got %d", n, s.Len())
	}
}

func TestStore_ConcurrentLookupDuringInsert(t *testing.T) {
	s := NewStore(0)
	s.Insert("fixed", domain.CallbackMetadata{Message: "x"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Insert(fmt.Sprintf("c-%d", i), domain.CallbackMetadata{})
		}(i)
		go func() {
			defer wg.Done()
			if _, ok := s.Lookup("fixed"); !ok {
				t.Error("lookup missed a live entry during concurrent inserts")
			}
		}()
	}
	wg.Wait()
}
