package pool

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolInvalidSize(t *testing.T) {
	if _, err := NewPool(0, nil); err != ErrInvalidPoolSize {
		t.Errorf("Got %v, want ErrInvalidPoolSize", err)
	}
}

func TestPoolRunsAllJobs(t *testing.T) {
	p, err := NewPool(4, nil)
	if err != nil {
		t.Fatal(err)
	}

	var done int32
	for i := 0; i < 100; i++ {
		if err := p.Submit(context.Background(), func() { atomic.AddInt32(&done, 1) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	p.Close()

	if done != 100 {
		t.Errorf("Got %d jobs done, want 100", done)
	}
	if err := p.Submit(context.Background(), func() {}); err != ErrPoolClosed {
		t.Errorf("Got %v, want ErrPoolClosed", err)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p, _ := NewPool(2, nil)
	defer p.Close()

	var (
		mu      sync.Mutex
		current int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(context.Background(), func() {
			defer wg.Done()
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			current--
			mu.Unlock()
		})
	}
	wg.Wait()

	if peak > p.Cap() {
		t.Errorf("peak concurrency %d exceeds capacity %d", peak, p.Cap())
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	p, _ := NewPool(1, nil)
	p.Submit(context.Background(), func() { panic("boom") })

	ran := make(chan struct{})
	p.Submit(context.Background(), func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	p.Close()
}

func TestSubmitStopsWaitingOnCancel(t *testing.T) {
	p, _ := NewPool(1, nil)
	release := make(chan struct{})
	p.Submit(context.Background(), func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, func() {}); err != context.DeadlineExceeded {
		t.Errorf("Got %v, want context.DeadlineExceeded", err)
	}

	close(release)
	p.Close()
}

func TestPanicLoggedToPoolLogger(t *testing.T) {
	var buf bytes.Buffer
	p, _ := NewPool(1, slog.New(slog.NewTextHandler(&buf, nil)))
	p.Submit(context.Background(), func() { panic("boom") })
	p.Close()

	if !strings.Contains(buf.String(), "Worker job panicked") || !strings.Contains(buf.String(), "panic=boom") {
		t.Errorf("panic not logged to the pool logger: %q", buf.String())
	}
}
