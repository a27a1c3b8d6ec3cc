// Package game models a locally installed game: its identity from the
// catalog, the install facts joined out of the agent database and the
// client config, and the set of live processes currently bound to it.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
)

// State is a bitset of observations about a game.
type State uint8

const (
	StateNone      State = 0
	StateInstalled State = 1 << 0
	StateRunning   State = 1 << 1
)

// Installed reports whether the installed bit is set.
func (s State) Installed() bool { return s&StateInstalled != 0 }

// Running reports whether the running bit is set.
func (s State) Running() bool { return s&StateRunning != 0 }

func (s State) String() string {
	switch {
	case s.Installed() && s.Running():
		return "installed,running"
	case s.Installed():
		return "installed"
	case s.Running():
		return "running"
	default:
		return "none"
	}
}

// MarshalJSON renders the state as its string form so external output
// stays readable.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Status pairs a game's external ID with its observed state.
type Status struct {
	ID    string `json:"id"`
	State State  `json:"state"`
}

// ErrNotGameProcess is returned when a process is bound to a game whose
// executable set does not contain the process's executable. Hitting it
// means the correlation step upstream is broken.
var ErrNotGameProcess = errors.New("process does not belong to the game")

// Process is the minimal view of a live OS process a game binds to.
type Process interface {
	Pid() int32
	Exe() (string, error)
	Running() (bool, error)
}

// InstalledGame is one game found on disk. Identity fields are fixed at
// construction; the process bindings mutate as scans and liveness checks
// happen and are guarded for concurrent use.
type InstalledGame struct {
	Info         catalog.Entry
	UninstallTag string
	Version      string
	LastPlayed   string
	InstallPath  string

	execs map[string]struct{}

	mu    sync.Mutex
	procs map[int32]Process
}

// New builds an InstalledGame over the given executable set.
func New(info catalog.Entry, uninstallTag, version, lastPlayed, installPath string, execs []string) *InstalledGame {
	g := &InstalledGame{
		Info:         info,
		UninstallTag: uninstallTag,
		Version:      version,
		LastPlayed:   lastPlayed,
		InstallPath:  installPath,
		execs:        make(map[string]struct{}, len(execs)),
		procs:        make(map[int32]Process),
	}
	for _, e := range execs {
		g.execs[e] = struct{}{}
	}
	return g
}

// Playable reports whether the install is complete enough to launch. The
// agent writes the version last, so a record with no version is still
// installing or updating.
func (g *InstalledGame) Playable() bool {
	return g.Version != ""
}

// HasExec reports whether path is one of the game's launch executables.
func (g *InstalledGame) HasExec(path string) bool {
	_, ok := g.execs[path]
	return ok
}

// Execs returns the executable set, sorted.
func (g *InstalledGame) Execs() []string {
	out := make([]string, 0, len(g.execs))
	for e := range g.execs {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// BindProcess attaches a live process to the game. The process must report
// an executable from the game's set; anything else is a caller bug and
// comes back as ErrNotGameProcess.
func (g *InstalledGame) BindProcess(p Process) error {
	exe, err := p.Exe()
	if err != nil {
		return fmt.Errorf("bind pid %d: %w", p.Pid(), err)
	}
	if !g.HasExec(exe) {
		return fmt.Errorf("bind pid %d (%s) to %s: %w", p.Pid(), exe, g.Info.UID, ErrNotGameProcess)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.procs[p.Pid()] = p
	return nil
}

// Running checks the bound processes for liveness. It reports true while
// at least one still runs; once none do, the binding set is cleared and
// further calls report false until a new scan binds processes again.
func (g *InstalledGame) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.procs {
		if alive, err := p.Running(); err == nil && alive {
			return true
		}
	}
	clear(g.procs)
	return false
}

// ClearBindings drops every bound process.
func (g *InstalledGame) ClearBindings() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.procs)
}

// BoundPids returns the PIDs currently bound, sorted.
func (g *InstalledGame) BoundPids() []int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int32, 0, len(g.procs))
	for pid := range g.procs {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
