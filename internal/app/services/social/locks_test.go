package social

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func lockCount(m *Manager) int {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	return len(m.locks)
}

func TestLock_ReleasesIdleEntries(t *testing.T) {
	m := New(nil, Options{}, nil, nil, nil, zap.NewNop())

	for i := 0; i < 100; i++ {
		unlock := m.lock("uid-a", string(rune('b'+i%20)), "uid-a")
		unlock()
	}
	if n := lockCount(m); n != 0 {
		t.Errorf("locks = %d after every holder released, want 0", n)
	}
}

func TestLock_SerializesSameID(t *testing.T) {
	m := New(nil, Options{}, nil, nil, nil, zap.NewNop())

	var wg sync.WaitGroup
	inside, peak, total := 0, 0, 0
	var mu sync.Mutex
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.lock("uid-a", "uid-b")
			mu.Lock()
			inside++
			if inside > peak {
				peak = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			total++
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("peak holders = %d, want 1", peak)
	}
	if total != 50 {
		t.Errorf("total = %d", total)
	}
	if n := lockCount(m); n != 0 {
		t.Errorf("locks = %d, want 0", n)
	}
}
