package starlark

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// DefaultIdleThreads is the number of idle threads a ThreadPool keeps when
// no limit is given.
const DefaultIdleThreads = 16

// ThreadPool hands out the Starlark threads templates are evaluated on and
// keeps a bounded number of idle ones for reuse across targets. Output of
// print() in templates and macros is logged at debug level, tagged with the
// template file being evaluated.
type ThreadPool struct {
	logger  *slog.Logger
	maxIdle int

	mu   sync.Mutex
	idle []*starlark.Thread
}

// NewThreadPool creates a pool keeping at most maxIdle idle threads.
func NewThreadPool(maxIdle int, logger *slog.Logger) *ThreadPool {
	if maxIdle <= 0 {
		maxIdle = DefaultIdleThreads
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadPool{logger: logger, maxIdle: maxIdle}
}

// Get returns a thread named after the template file it will evaluate.
func (p *ThreadPool) Get(file string) *starlark.Thread {
	p.mu.Lock()
	var thread *starlark.Thread
	if n := len(p.idle); n > 0 {
		thread, p.idle = p.idle[n-1], p.idle[:n-1]
	}
	p.mu.Unlock()

	if thread == nil {
		thread = &starlark.Thread{Print: p.print}
	}
	thread.Name = file
	return thread
}

// Put returns thread for reuse. It is dropped when the pool is full.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	thread.Name = ""

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, thread)
	}
}

// Idle returns the number of idle threads.
func (p *ThreadPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *ThreadPool) print(thread *starlark.Thread, msg string) {
	p.logger.Debug("template print", slog.String("file", thread.Name), slog.String("message", msg))
}
