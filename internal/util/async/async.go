// Package async provides helpers for bounded parallel task execution.
//
// Host fan-out within a bootstrap phase runs every targeted host
// concurrently; host counts are small (tens, not thousands), so the
// pool is simply sized to the task count.
package async

import (
	"context"
	"fmt"
)

// Task represents a named asynchronous operation.
type Task struct {
	Name string
	Func func(context.Context) error
}

// TaskResult pairs a task name with its outcome.
type TaskResult struct {
	Name string
	Err  error
}

// RunAll executes all tasks concurrently and waits for every one to
// finish. Results are returned in task order, so callers can correlate
// outcomes with inputs without locking.
func RunAll(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	done := make(chan int, len(tasks))
	for i, task := range tasks {
		go func() {
			results[i] = TaskResult{Name: task.Name, Err: task.Func(ctx)}
			done <- i
		}()
	}
	for range tasks {
		<-done
	}
	return results
}

// RunParallel executes all tasks concurrently and returns the first
// error encountered after every task has finished.
func RunParallel(ctx context.Context, tasks []Task) error {
	for _, res := range RunAll(ctx, tasks) {
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Name, res.Err)
		}
	}
	return nil
}
