// Package engine maintains the local view of installed games and emits
// state transitions as that view changes.
//
// A refresh pass reads the agent database and the client config through a
// Source, joins them into a Snapshot, diffs it against the previous
// snapshot and emits the resulting transitions: to the notifier, to the
// log, and to the journal when one is attached. Snapshots are immutable;
// the current one is swapped in atomically so readers never block a pass.
//
// All refresh passes are serialized. Running-watch goroutines are the one
// concurrent element: they poll a recently launched game's processes and
// emit the revert to installed once the game exits.
//
// ERROR HANDLING: a pass that cannot read its inputs degrades to an empty
// snapshot and keeps going. Transitions are facts about the world; failing
// to persist one is logged and does not stop the pass.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/clientconfig"
	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/journal"
	"github.com/mtarnawa/bnetlocal/internal/pathfind"
	"github.com/mtarnawa/bnetlocal/internal/proc"
	"github.com/mtarnawa/bnetlocal/internal/productdb"
)

// Watch timing defaults: how long to wait before the first process scan of
// a freshly launched game, and how often to re-check liveness after that.
const (
	DefaultWatchDelay    = 3 * time.Second
	DefaultWatchInterval = time.Second
)

// LauncherProbe reports whether the desktop client looks installed, and
// re-discovers it on demand. The engine cross-checks the probe against the
// database's launcher record each pass and asks for rediscovery when the
// two disagree.
type LauncherProbe interface {
	Installed() bool
	Rediscover()
}

// Engine watches the local data and keeps the installed-games snapshot.
type Engine struct {
	catalog *catalog.Registry
	source  Source
	locate  pathfind.Locator
	enum    proc.Enumerator
	notify  Notifier
	journal *journal.Store
	probe   LauncherProbe
	tokens  TokenGenerator
	clock   *Clock

	watchDelay    time.Duration
	watchInterval time.Duration

	refreshMu sync.Mutex
	snapshot  atomic.Pointer[Snapshot]

	watchMu sync.Mutex
	watched map[string]struct{}

	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocator sets the executable locator used when building snapshots.
func WithLocator(l pathfind.Locator) Option {
	return func(e *Engine) { e.locate = l }
}

// WithEnumerator sets the process enumerator used for scans and watches.
func WithEnumerator(enum proc.Enumerator) Option {
	return func(e *Engine) { e.enum = enum }
}

// WithNotifier sets the transition notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithJournal attaches a journal; passes and transitions are recorded in
// it.
func WithJournal(j *journal.Store) Option {
	return func(e *Engine) { e.journal = j }
}

// WithLauncherProbe attaches a launcher installation probe.
func WithLauncherProbe(p LauncherProbe) Option {
	return func(e *Engine) { e.probe = p }
}

// WithTokenGenerator sets the refresh token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithWatchDelay sets how long a running-watch waits before its first
// process scan.
func WithWatchDelay(d time.Duration) Option {
	return func(e *Engine) { e.watchDelay = d }
}

// WithWatchInterval sets how often a running-watch re-checks liveness.
func WithWatchInterval(d time.Duration) Option {
	return func(e *Engine) { e.watchInterval = d }
}

// New creates an Engine over the given catalog and data source. Without
// options it scans the real process table, walks the real filesystem for
// executables and emits transitions to the log only.
func New(cat *catalog.Registry, src Source, opts ...Option) *Engine {
	e := &Engine{
		catalog:       cat,
		source:        src,
		locate:        pathfind.Default(),
		enum:          proc.SystemEnumerator{},
		tokens:        UUIDv7Generator{},
		clock:         NewClock(),
		watchDelay:    DefaultWatchDelay,
		watchInterval: DefaultWatchInterval,
		watched:       make(map[string]struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the engine: one refresh immediately, then one per signal,
// until the context ends or the signal channel closes. Signals carry no
// payload; each one means "the local data may have changed, look again".
func (e *Engine) Run(ctx context.Context, signal <-chan struct{}) error {
	slog.Info("engine starting")
	e.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			return ctx.Err()
		case <-e.done:
			slog.Info("engine stopping: closed")
			return nil
		case _, ok := <-signal:
			if !ok {
				slog.Info("engine stopping: signal source closed")
				return nil
			}
			slog.Debug("local data changed")
			e.Refresh(ctx)
		}
	}
}

// Close stops the engine's watch goroutines and waits for them. Safe to
// call more than once.
func (e *Engine) Close() {
	e.closing.Do(func() { close(e.done) })
	e.wg.Wait()
}

// Refresh runs one pass: read, join, diff, emit. Passes are serialized;
// concurrent callers queue up behind the lock.
func (e *Engine) Refresh(ctx context.Context) {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	start := time.Now()
	token := e.tokens.Generate()
	next := e.buildSnapshot(ctx)

	var prev Snapshot
	if p := e.snapshot.Load(); p != nil {
		prev = *p
	}
	changes := diff(prev, next)
	e.snapshot.Store(&next)

	for _, ch := range changes {
		e.emit(ctx, token, ch.status)
		if ch.watch {
			e.watchRunning(token, next[ch.status.ID])
		}
	}

	if e.journal != nil {
		err := e.journal.RecordRefresh(ctx, journal.Refresh{
			Token:     token,
			StartedAt: start,
			Duration:  time.Since(start),
			Games:     len(next),
		})
		if err != nil {
			slog.Error("journal write failed", "err", err, "token", token)
		}
	}
	slog.Debug("refresh complete",
		"token", token,
		"games", len(next),
		"transitions", len(changes),
		"took", time.Since(start),
	)
}

// buildSnapshot reads and joins the local data. Trouble reading either
// file degrades: a missing or unreadable database means no games, a
// missing config means default settings and no config records.
func (e *Engine) buildSnapshot(ctx context.Context) Snapshot {
	raw, err := e.source.ProductDB()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("product database not found")
		} else {
			slog.Warn("product database unreadable", "err", err)
		}
		return Snapshot{}
	}
	db := productdb.Decode(raw)

	if e.probe != nil && e.probe.Installed() != db.LauncherPresent() {
		slog.Debug("launcher install state out of sync, rediscovering")
		e.probe.Rediscover()
	}

	cfgRaw, err := e.source.ClientConfig()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("client config not found")
		} else {
			slog.Warn("client config unreadable", "err", err)
		}
		cfgRaw = nil
	}
	cfg := clientconfig.Parse(cfgRaw)

	return join(db, cfg, e.catalog, e.locate)
}

// emit stamps one transition and delivers it to the log, the journal and
// the notifier.
func (e *Engine) emit(ctx context.Context, token string, st game.Status) {
	seq := e.clock.Next()
	slog.Info("game state changed",
		"game", st.ID,
		"state", st.State.String(),
		"seq", seq,
		"token", token,
	)
	if e.journal != nil {
		err := e.journal.RecordTransition(ctx, journal.Transition{
			Seq:          seq,
			RefreshToken: token,
			GameID:       st.ID,
			State:        st.State,
			RecordedAt:   time.Now(),
		})
		if err != nil {
			slog.Error("journal write failed", "err", err, "game", st.ID, "seq", seq)
		}
	}
	if e.notify != nil {
		e.notify.NotifyStatus(st)
	}
}

// Snapshot returns the current snapshot. Nil before the first refresh.
func (e *Engine) Snapshot() Snapshot {
	p := e.snapshot.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Games returns the snapshot's games sorted by external ID.
func (e *Engine) Games() []*game.InstalledGame {
	snap := e.Snapshot()
	out := make([]*game.InstalledGame, 0, len(snap))
	for _, id := range sortedIDs(snap) {
		out = append(out, snap[id])
	}
	return out
}

// Game looks a game up by external ID in the current snapshot.
func (e *Engine) Game(id string) (*game.InstalledGame, bool) {
	g, ok := e.Snapshot()[id]
	return g, ok
}

// Statuses scans the process table once and reports each game's current
// state: installed while playable, running while a bound process lives.
func (e *Engine) Statuses(ctx context.Context) ([]game.Status, error) {
	games := e.Games()
	running, err := proc.Correlate(ctx, e.enum, games)
	if err != nil {
		return nil, fmt.Errorf("scan processes: %w", err)
	}
	out := make([]game.Status, 0, len(games))
	for _, g := range games {
		st := game.StateNone
		if g.Playable() {
			st |= game.StateInstalled
		}
		if _, ok := running[g.Info.ID]; ok {
			st |= game.StateRunning
		}
		out = append(out, game.Status{ID: g.Info.ID, State: st})
	}
	return out, nil
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}
