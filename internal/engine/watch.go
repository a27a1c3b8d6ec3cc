package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/proc"
)

// watchRunning starts the running-watch for a game that just transitioned
// to running. At most one watch per game ID is live at a time; a second
// request while one is active is dropped.
func (e *Engine) watchRunning(token string, g *game.InstalledGame) {
	if g == nil {
		return
	}
	id := g.Info.ID

	e.watchMu.Lock()
	if _, ok := e.watched[id]; ok {
		e.watchMu.Unlock()
		slog.Debug("game already watched", "game", id)
		return
	}
	e.watched[id] = struct{}{}
	e.watchMu.Unlock()

	e.wg.Add(1)
	go e.watchUntilStopped(token, g)
}

// watchUntilStopped polls a running game's processes and emits the revert
// to installed once none are left. The initial delay gives a freshly
// spawned process time to appear in the table before the first scan.
func (e *Engine) watchUntilStopped(token string, g *game.InstalledGame) {
	id := g.Info.ID
	defer func() {
		e.watchMu.Lock()
		delete(e.watched, id)
		e.watchMu.Unlock()
		e.wg.Done()
	}()

	if !e.sleep(e.watchDelay) {
		return
	}

	ctx := context.Background()
	if _, err := proc.Correlate(ctx, e.enum, []*game.InstalledGame{g}); err != nil {
		slog.Warn("process scan failed, watch continues unbound", "game", id, "err", err)
	}

	ticker := time.NewTicker(e.watchInterval)
	defer ticker.Stop()
	for {
		if !g.Running() {
			slog.Debug("game stopped", "game", id)
			e.emit(ctx, token, game.Status{ID: id, State: game.StateInstalled})
			return
		}
		select {
		case <-e.done:
			return
		case <-ticker.C:
		}
	}
}

// sleep waits for d unless the engine closes first. Reports whether the
// full duration elapsed.
func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.done:
		return false
	case <-timer.C:
		return true
	}
}
