package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	pool := NewPool(Config{Workers: 4, QueueSize: 100})
	defer pool.Close()

	if pool.workers != 4 {
		t.Errorf("workers = %d, want 4", pool.workers)
	}
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(Config{})
	defer pool.Close()

	if pool.workers == 0 {
		t.Error("should have default workers")
	}
}

func TestSubmit_Success(t *testing.T) {
	pool := NewPool(Config{Workers: 2, QueueSize: 10})
	defer pool.Close()

	var executed atomic.Bool
	job := JobFunc(func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	if err := pool.Submit(context.Background(), job); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if !executed.Load() {
		t.Error("job was not executed")
	}
}

func TestSubmit_JobError(t *testing.T) {
	pool := NewPool(Config{Workers: 2, QueueSize: 10})
	defer pool.Close()

	expectedErr := errors.New("job failed")
	job := JobFunc(func(ctx context.Context) error {
		return expectedErr
	})

	err := pool.Submit(context.Background(), job)
	if err != expectedErr {
		t.Errorf("Submit() error = %v, want %v", err, expectedErr)
	}
}

func TestSubmit_ContextCanceled(t *testing.T) {
	pool := NewPool(Config{Workers: 2, QueueSize: 10})
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := JobFunc(func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	err := pool.Submit(ctx, job)
	if err != context.Canceled && err != ErrJobTimeout {
		t.Errorf("Submit() error = %v, want context.Canceled or ErrJobTimeout", err)
	}
}

func TestSubmit_Panic(t *testing.T) {
	var panicCaught atomic.Bool
	pool := NewPool(Config{
		Workers:   2,
		QueueSize: 10,
		PanicHandler: func(r interface{}) {
			panicCaught.Store(true)
		},
	})
	defer pool.Close()

	job := JobFunc(func(ctx context.Context) error {
		panic("test panic")
	})

	err := pool.Submit(context.Background(), job)
	if err == nil {
		t.Error("Submit() should return error when job panics")
	}
	if !panicCaught.Load() {
		t.Error("panic handler was not called")
	}
}

func TestQueueTimeout(t *testing.T) {
	pool := NewPool(Config{
		Workers:      1,
		QueueSize:    1,
		QueueTimeout: 50 * time.Millisecond,
	})
	defer pool.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Submit(context.Background(), JobFunc(func(ctx context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}))
	}()
	go func() {
		defer wg.Done()
		pool.Submit(context.Background(), JobFunc(func(ctx context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}))
	}()
	time.Sleep(10 * time.Millisecond) // let both occupy worker + queue slot

	err := pool.Submit(context.Background(), JobFunc(func(ctx context.Context) error {
		return nil
	}))
	if err != ErrJobTimeout {
		t.Errorf("Submit() error = %v, want ErrJobTimeout", err)
	}
	wg.Wait()
}

func TestClose(t *testing.T) {
	pool := NewPool(Config{Workers: 2, QueueSize: 10})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(context.Background(), JobFunc(func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				return nil
			}))
		}()
	}
	wg.Wait()

	if err := pool.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	err := pool.Submit(context.Background(), JobFunc(func(ctx context.Context) error {
		return nil
	}))
	if err != ErrPoolClosed {
		t.Errorf("Submit after close error = %v, want ErrPoolClosed", err)
	}
}

func TestConcurrency(t *testing.T) {
	pool := NewPool(Config{Workers: 4, QueueSize: 100})
	defer pool.Close()

	const jobs = 100
	var completed atomic.Uint64

	var wg sync.WaitGroup
	wg.Add(jobs)

	for i := 0; i < jobs; i++ {
		go func() {
			defer wg.Done()
			job := JobFunc(func(ctx context.Context) error {
				time.Sleep(time.Millisecond)
				completed.Add(1)
				return nil
			})
			if err := pool.Submit(context.Background(), job); err != nil {
				t.Errorf("Submit() error: %v", err)
			}
		}()
	}

	wg.Wait()

	if completed.Load() != jobs {
		t.Errorf("completed = %d, want %d", completed.Load(), jobs)
	}
}

func BenchmarkSubmit(b *testing.B) {
	pool := NewPool(Config{Workers: 4, QueueSize: 1000})
	defer pool.Close()

	job := JobFunc(func(ctx context.Context) error {
		return nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(context.Background(), job)
	}
}
