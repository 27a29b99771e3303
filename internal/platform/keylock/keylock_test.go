package keylock

import (
	"sync"
	"testing"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := New()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("t:g")
			counter++
			kl.Unlock("t:g")
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	kl := New()
	kl.Lock("t:a")
	done := make(chan struct{})
	go func() {
		kl.Lock("t:b") // must not block on t:a
		kl.Unlock("t:b")
		close(done)
	}()
	<-done
	kl.Unlock("t:a")
}
