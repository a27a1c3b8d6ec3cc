package engine

import "github.com/mtarnawa/bnetlocal/internal/game"

// change is one transition the diff decided to emit. watch marks changes
// that should start a running-watch on the game.
type change struct {
	status game.Status
	watch  bool
}

// diff compares two snapshots and returns the transitions to emit, in a
// deterministic order: games present in next sorted by ID, then removals
// sorted by ID.
//
// For a game in both snapshots the first matching rule wins:
//
//  1. not playable before, playable now: it finished installing
//  2. last-played changed: the client launched it, so it is running
//  3. otherwise nothing
//
// Rule 2 fires even for a not-yet-playable game; a changed last-played
// time means the client ran something, whatever the install state claims.
func diff(prev, next Snapshot) []change {
	var out []change
	for _, id := range sortedIDs(next) {
		cur := next[id]
		old, existed := prev[id]
		switch {
		case !existed && cur.Playable():
			out = append(out, change{status: game.Status{ID: id, State: game.StateInstalled}})
		case !existed:
			out = append(out, change{status: game.Status{ID: id, State: game.StateNone}})
		case cur.Playable() && !old.Playable():
			out = append(out, change{status: game.Status{ID: id, State: game.StateInstalled}})
		case cur.LastPlayed != old.LastPlayed:
			out = append(out, change{
				status: game.Status{ID: id, State: game.StateInstalled | game.StateRunning},
				watch:  true,
			})
		}
	}
	for _, id := range sortedIDs(prev) {
		if _, ok := next[id]; !ok {
			out = append(out, change{status: game.Status{ID: id, State: game.StateNone}})
		}
	}
	return out
}
