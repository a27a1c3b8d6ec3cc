package testutil

import (
	"context"
	"sync"
)

// StartedCommand records one process spawn request.
type StartedCommand struct {
	Dir  string
	Name string
	Args []string
}

// Starter records spawn requests instead of executing them. It satisfies
// the starter interface the launcher client shells out through.
//
// Thread-safety: all methods are safe for concurrent use.
type Starter struct {
	mu      sync.Mutex
	started []StartedCommand
	err     error
}

// Start records the command, or returns the injected error.
func (s *Starter) Start(ctx context.Context, dir, name string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, StartedCommand{Dir: dir, Name: name, Args: append([]string(nil), args...)})
	return nil
}

// Started returns the commands recorded so far, in order.
func (s *Starter) Started() []StartedCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StartedCommand, len(s.started))
	copy(out, s.started)
	return out
}

// Fail makes Start return err.
func (s *Starter) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
