package engine

import "github.com/mtarnawa/bnetlocal/internal/game"

// Notifier receives game state transitions as the engine emits them.
// Notification happens on the goroutine that detected the change, so
// implementations should return quickly.
type Notifier interface {
	NotifyStatus(st game.Status)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(game.Status)

// NotifyStatus calls f.
func (f NotifierFunc) NotifyStatus(st game.Status) { f(st) }

// Fanout delivers each transition to every notifier in order.
type Fanout []Notifier

// NotifyStatus forwards st to each member.
func (fo Fanout) NotifyStatus(st game.Status) {
	for _, n := range fo {
		n.NotifyStatus(st)
	}
}
