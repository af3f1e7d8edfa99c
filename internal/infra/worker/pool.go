// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

var ErrStopped = errors.New("worker pool stopped")

// Pool runs submitted tasks on a fixed number of goroutines. The worker count
// is the cap on concurrently handled updates. Tasks submitted with the same
// key run on the same worker, in submission order.
type Pool struct {
	wg    sync.WaitGroup
	jobs  chan Task
	keyed []chan Task
	quit  chan struct{}
	once  sync.Once
	n     int
	log   *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	keyed := make([]chan Task, workers)
	for i := range keyed {
		keyed[i] = make(chan Task, 4)
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	return &Pool{
		jobs:  make(chan Task, workers*4),
		keyed: keyed,
		quit:  make(chan struct{}),
		n:     workers,
		log:   &l,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			own := p.keyed[id]
			for {
				var task Task
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task = <-own:
				case task = <-p.jobs:
				}
				if task == nil {
					continue
				}
				if err := p.run(ctx, task); err != nil {
					p.log.Error().Err(err).Int("worker", id).Msg("task error")
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Stop ends the workers and waits for running tasks. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// SubmitWait blocks until the task is queued, ctx ends or the pool stops.
// Any free worker may pick it up.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	return p.enqueue(ctx, p.jobs, task)
}

// SubmitKeyed queues task on the worker owning key, so tasks of one key never
// overlap and keep their order.
func (p *Pool) SubmitKeyed(ctx context.Context, key int64, task Task) error {
	return p.enqueue(ctx, p.keyed[p.shard(key)], task)
}

func (p *Pool) shard(key int64) int {
	return int(uint64(key) % uint64(p.n))
}

func (p *Pool) enqueue(ctx context.Context, q chan Task, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case q <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrStopped
	}
}
