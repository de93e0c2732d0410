package dispatcher

import "context"

// Task is the handle of a detached unit of work
type Task struct {
	name string
	done chan struct{}
	err  error
}

func newTask(name string) *Task {
	return &Task{
		name: name,
		done: make(chan struct{}),
	}
}

// CompletedTask returns a handle that is already finished with err
func CompletedTask(name string, err error) *Task {
	t := newTask(name)
	t.finish(err)
	return t
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// Done is closed when the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task result; nil while the task is still running
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
