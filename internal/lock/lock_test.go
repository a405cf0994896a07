package lock

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExclusiveExcludesExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	l1 := New(path)
	l2 := New(path)

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	work := func(l *FileLock) {
		defer wg.Done()
		_ = l.WithExclusive(func() error {
			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxInside)
				if n <= old || atomic.CompareAndSwapInt32(&maxInside, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}

	wg.Add(2)
	go work(l1)
	go work(l2)
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most 1 concurrent exclusive holder, saw %d", maxInside)
	}
}

func TestSharedAllowsConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	l1 := New(path)
	l2 := New(path)

	var wg sync.WaitGroup
	both := make(chan struct{}, 2)

	work := func(l *FileLock) {
		defer wg.Done()
		_ = l.WithShared(func() error {
			both <- struct{}{}
			time.Sleep(50 * time.Millisecond)
			return nil
		})
	}

	wg.Add(2)
	go work(l1)
	go work(l2)

	select {
	case <-both:
	case <-time.After(time.Second):
		t.Fatal("first shared holder never entered")
	}
	select {
	case <-both:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("second shared holder did not run concurrently with the first")
	}

	wg.Wait()
}

func TestExclusiveWaitsForShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	shared := New(path)
	exclusive := New(path)

	releaseShared := make(chan struct{})
	sharedEntered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = shared.WithShared(func() error {
			close(sharedEntered)
			<-releaseShared
			return nil
		})
	}()

	<-sharedEntered

	exclusiveDone := make(chan struct{})
	go func() {
		_ = exclusive.WithExclusive(func() error { return nil })
		close(exclusiveDone)
	}()

	select {
	case <-exclusiveDone:
		t.Fatal("exclusive lock acquired while shared holder was active")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseShared)
	wg.Wait()

	select {
	case <-exclusiveDone:
	case <-time.After(time.Second):
		t.Fatal("exclusive lock never acquired after shared release")
	}
}
