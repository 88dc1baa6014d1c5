package parallelism

import (
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(4)
	var count int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func() error {
			atomic.AddInt32(&count, 1)
			return nil
		}
	}
	if err := pool.Run(tasks); err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}

func TestPoolReturnsFirstErrorButRunsAll(t *testing.T) {
	pool := NewPool(2)
	var count int32
	tasks := []Task{
		func() error { atomic.AddInt32(&count, 1); return errFake },
		func() error { atomic.AddInt32(&count, 1); return nil },
		func() error { atomic.AddInt32(&count, 1); return errFake },
	}
	if err := pool.Run(tasks); err != errFake {
		t.Errorf("err = %v, want errFake", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3 (all tasks should still run)", count)
	}
}

func TestPoolEmptyTasks(t *testing.T) {
	pool := NewPool(4)
	if err := pool.Run(nil); err != nil {
		t.Errorf("Run(nil) = %v, want nil", err)
	}
}

var errFake = &fakeError{"fake"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }
