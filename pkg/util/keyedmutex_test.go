package util

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("opener:user-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("channel:a")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("channel:b")
		unlockB()
		close(done)
	}()

	// Key b must not wait on key a.
	<-done
	unlockA()
}

func TestKeyedMutexReentryAfterUnlock(t *testing.T) {
	km := NewKeyedMutex()

	unlock := km.Lock("msg-1")
	unlock()
	unlock = km.Lock("msg-1")
	unlock()
}

func TestKeyedMutexReleasesIdleEntries(t *testing.T) {
	km := NewKeyedMutex()

	for i := 0; i < 100000; i++ {
		unlock := km.Lock(fmt.Sprintf("msg-%d", i))
		unlock()
	}

	km.mu.Lock()
	size := len(km.locks)
	km.mu.Unlock()
	if size != 0 {
		t.Fatalf("lock table holds %d entries after all unlocks, want 0", size)
	}
}

func TestKeyedMutexKeepsEntryWhileWaitersQueue(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("chan-1")
	acquired := make(chan func())
	go func() {
		acquired <- km.Lock("chan-1")
	}()

	// Give the second locker time to register as a waiter.
	for {
		km.mu.Lock()
		l, ok := km.locks["chan-1"]
		waiting := ok && l.refs == 2
		km.mu.Unlock()
		if waiting {
			break
		}
		time.Sleep(time.Millisecond)
	}

	unlockA()
	unlockB := <-acquired
	unlockB()

	km.mu.Lock()
	size := len(km.locks)
	km.mu.Unlock()
	if size != 0 {
		t.Fatalf("lock table holds %d entries after all holders released, want 0", size)
	}
}
