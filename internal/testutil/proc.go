// Package testutil provides deterministic test doubles for the process
// layer. Scans and liveness checks driven by these fakes produce identical
// results on every run, which keeps scenario and golden tests stable.
package testutil

import (
	"context"
	"sync"

	"github.com/mtarnawa/bnetlocal/internal/game"
)

// Process is a controllable stand-in for a live OS process.
//
// It starts alive. Kill it to make liveness checks report false, exactly
// as if the real process had exited. Exe and liveness errors can be
// injected to simulate access-denied and vanished processes.
//
// Thread-safety: all methods are safe for concurrent use.
type Process struct {
	pid int32
	exe string

	mu         sync.Mutex
	alive      bool
	exeErr     error
	runningErr error
}

// NewProcess creates a live fake process with the given pid and
// executable path.
func NewProcess(pid int32, exe string) *Process {
	return &Process{pid: pid, exe: exe, alive: true}
}

// Pid returns the fake pid.
func (p *Process) Pid() int32 { return p.pid }

// Exe returns the executable path, or the injected error.
func (p *Process) Exe() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exeErr != nil {
		return "", p.exeErr
	}
	return p.exe, nil
}

// Running reports liveness, or the injected error.
func (p *Process) Running() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runningErr != nil {
		return false, p.runningErr
	}
	return p.alive, nil
}

// Kill marks the process dead. Subsequent Running calls report false.
func (p *Process) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = false
}

// FailExe makes Exe return err, simulating a process the scan cannot
// inspect.
func (p *Process) FailExe(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exeErr = err
}

// FailRunning makes Running return err.
func (p *Process) FailRunning(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runningErr = err
}

// Enumerator is a process table fake. It satisfies the enumerator
// interface the correlation layer scans with.
//
// The zero value is an empty table. Processes appear in Add order.
type Enumerator struct {
	mu    sync.Mutex
	procs []game.Process
	err   error
}

// NewEnumerator creates an enumerator over the given processes.
func NewEnumerator(procs ...game.Process) *Enumerator {
	return &Enumerator{procs: procs}
}

// Processes returns the current table, or the injected error.
func (e *Enumerator) Processes(ctx context.Context) ([]game.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([]game.Process, len(e.procs))
	copy(out, e.procs)
	return out, nil
}

// Add appends processes to the table.
func (e *Enumerator) Add(procs ...game.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.procs = append(e.procs, procs...)
}

// Clear empties the table.
func (e *Enumerator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.procs = nil
}

// Fail makes Processes return err, simulating an unreadable process
// table.
func (e *Enumerator) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}
