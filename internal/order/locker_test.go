package order

import (
	"sync"
	"testing"
)

func TestLocker_SerializesPerID(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(7)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
	if len(l.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(l.locks))
	}
}

func TestLocker_DistinctIDsDoNotBlock(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock(2)
		unlock()
		close(done)
	}()
	<-done
}
