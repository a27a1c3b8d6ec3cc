// Package proc scans the live process table and correlates what it finds
// with installed games. The OS-backed enumerator sits behind a small
// interface so everything above it stays deterministic under test.
package proc

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/mtarnawa/bnetlocal/internal/game"
)

// Enumerator lists the live processes on this machine.
type Enumerator interface {
	Processes(ctx context.Context) ([]game.Process, error)
}

// SystemEnumerator reads the real process table.
type SystemEnumerator struct{}

// Processes returns every live process. Individual processes can still
// refuse inspection later; that is dealt with per process, not here.
func (SystemEnumerator) Processes(ctx context.Context) ([]game.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	out := make([]game.Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, sysProcess{p})
	}
	return out, nil
}

// sysProcess adapts a gopsutil process to the game.Process interface.
type sysProcess struct {
	p *process.Process
}

func (s sysProcess) Pid() int32 { return s.p.Pid }

func (s sysProcess) Exe() (string, error) { return s.p.Exe() }

func (s sysProcess) Running() (bool, error) { return s.p.IsRunning() }

// Correlate scans the process table once and binds every matching process
// to its game. Prior bindings are discarded first: each scan recomputes
// the full picture. It returns the set of game IDs with at least one live
// process.
//
// Processes that refuse inspection are skipped. A process matches at most
// one game; when executable sets overlap, the game with the smallest ID
// wins, so repeated scans agree with each other.
func Correlate(ctx context.Context, enum Enumerator, games []*game.InstalledGame) (map[string]struct{}, error) {
	for _, g := range games {
		g.ClearBindings()
	}
	procs, err := enum.Processes(ctx)
	if err != nil {
		return nil, err
	}

	ordered := make([]*game.InstalledGame, len(games))
	copy(ordered, games)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Info.ID < ordered[j].Info.ID })

	running := make(map[string]struct{})
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil || exe == "" {
			continue
		}
		for _, g := range ordered {
			if !g.HasExec(exe) {
				continue
			}
			if err := g.BindProcess(p); err != nil {
				if errors.Is(err, game.ErrNotGameProcess) {
					return nil, err
				}
				break // process vanished between inspection and binding
			}
			running[g.Info.ID] = struct{}{}
			break
		}
	}
	return running, nil
}

// Find returns the first live process running the given executable, or
// nil when none does.
func Find(ctx context.Context, enum Enumerator, exe string) (game.Process, error) {
	if exe == "" {
		return nil, nil
	}
	procs, err := enum.Processes(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		path, err := p.Exe()
		if err != nil {
			continue
		}
		if path == exe {
			return p, nil
		}
	}
	return nil, nil
}

// Exists reports whether any live process runs the given executable.
func Exists(ctx context.Context, enum Enumerator, exe string) (bool, error) {
	p, err := Find(ctx, enum, exe)
	return p != nil, err
}
