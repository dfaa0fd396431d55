// Package taskqueue пакетный планировщик с ограниченным параллелизмом.
//
// Задачи сначала накапливаются, затем Run запускает весь пакет на пуле
// воркеров и блокируется до завершения каждой задачи. Пока пакет
// выполняется, очередь заморожена: новые задачи отклоняются.
package taskqueue

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/shirou/gopsutil/v3/cpu"
)

var (
	// ErrBatchRunning возвращается при попытке изменить очередь во время Run
	ErrBatchRunning = errors.New("taskqueue: batch is running")
	// ErrArityMismatch число задач не совпадает с числом параметров
	ErrArityMismatch = errors.New("taskqueue: task/parameter arity mismatch")
)

// DefaultWorkers число логических процессоров
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Queue очередь задач одного пакета
type Queue struct {
	mu      sync.Mutex
	pool    pond.Pool
	workers int
	pending []func() error
	running bool
}

// New создаёт очередь с указанным числом воркеров.
// workers <= 0 означает число логических процессоров.
func New(workers int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Queue{
		pool:    pond.NewPool(workers),
		workers: workers,
	}
}

// Workers размер пула
func (q *Queue) Workers() int {
	return q.workers
}

// Len число задач, ожидающих запуска
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Add ставит задачу в следующий пакет
func (q *Queue) Add(task func() error) error {
	if task == nil {
		return fmt.Errorf("taskqueue: nil task")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrBatchRunning
	}
	q.pending = append(q.pending, task)
	return nil
}

// Submit ставит в очередь по одной задаче на каждый параметр.
// Либо одна задача применяется ко всем параметрам, либо задач ровно столько же,
// сколько параметров, и i-я задача получает i-й параметр.
func Submit[P any](q *Queue, params []P, tasks ...func(P) error) error {
	if len(tasks) == 0 || (len(tasks) != 1 && len(tasks) != len(params)) {
		return fmt.Errorf("%w: %d tasks for %d parameters", ErrArityMismatch, len(tasks), len(params))
	}

	batch := make([]func() error, len(params))
	for i := range params {
		task := tasks[0]
		if len(tasks) > 1 {
			task = tasks[i]
		}
		if task == nil {
			return fmt.Errorf("taskqueue: nil task at %d", i)
		}
		param := params[i]
		batch[i] = func() error { return task(param) }
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrBatchRunning
	}
	q.pending = append(q.pending, batch...)
	return nil
}

// Run выполняет накопленный пакет и ждёт завершения всех задач.
// Возвращает первую ошибку; остальные задачи всё равно доводятся до конца.
// Пустой пакет ничего не делает.
func (q *Queue) Run() error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrBatchRunning
	}
	batch := q.pending
	q.pending = nil
	q.running = len(batch) > 0
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	defer func() {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}()

	var (
		errMu    sync.Mutex
		firstErr error
	)
	group := q.pool.NewGroup()
	for _, task := range batch {
		group.Submit(func() {
			if err := task(); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		})
	}
	if err := group.Wait(); err != nil && firstErr == nil {
		// паника внутри задачи
		firstErr = err
	}
	return firstErr
}

// Close останавливает пул после завершения текущих задач
func (q *Queue) Close() {
	q.pool.StopAndWait()
}
