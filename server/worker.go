package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/intcode/pkg/intcode"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("session worker stopped")

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*SessionWorker) interface{}
	done chan workResult
}

// workResult holds the return value from a VM operation.
type workResult struct {
	value interface{}
	err   error
}

// SessionWorker serializes all access to one session's VM through a
// single goroutine. A VM is not safe for concurrent use; every handler
// touching it must go through the worker.
type SessionWorker struct {
	vm       *intcode.VM
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewSessionWorker creates a SessionWorker and starts the processing goroutine.
func NewSessionWorker(vm *intcode.VM) *SessionWorker {
	w := &SessionWorker{
		vm:       vm,
		requests: make(chan workRequest, 16),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *SessionWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *SessionWorker) execute(fn func(*SessionWorker) interface{}) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w)
	}()
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. A returned error is either a recovered panic or
// ErrWorkerStopped; errors from the VM itself travel in the value.
func (w *SessionWorker) Do(fn func(*intcode.VM) interface{}) (interface{}, error) {
	return w.do(func(w *SessionWorker) interface{} { return fn(w.vm) })
}

// Replace swaps the worker's VM on the worker goroutine.
func (w *SessionWorker) Replace(vm *intcode.VM) error {
	_, err := w.do(func(w *SessionWorker) interface{} {
		w.vm = vm
		return nil
	})
	return err
}

func (w *SessionWorker) do(fn func(*SessionWorker) interface{}) (interface{}, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *SessionWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
