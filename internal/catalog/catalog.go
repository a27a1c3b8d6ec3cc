// Package catalog holds the static table of games the launcher is known to
// manage. Local data files identify products by several different keys
// depending on where the value comes from (the agent database, the client
// config, user-facing output), so the registry answers lookups by any of
// them.
package catalog

import (
	"golang.org/x/text/unicode/norm"
)

// Entry describes one known game.
//
// UID is the product identifier used inside the client config ("s2",
// "prometheus"). ID is the external identifier reported to callers.
// Family is the short code the launcher's --exec interface expects
// ("launch Pro"). A few entries carry the placeholder ID "?" because the
// external identifier was never published for them.
type Entry struct {
	UID    string
	Name   string
	ID     string
	Family string
}

// entries is ordered; lookup resolves key collisions (the "?" placeholders)
// in favor of the earliest entry.
var entries = []Entry{
	{"s1", "StarCraft", "21297", "S1"},
	{"s2", "StarCraft II", "21298", "S2"},
	{"wow", "World of Warcraft", "5730135", "WoW"},
	{"prometheus", "Overwatch", "5272175", "Pro"},
	{"w3", "Warcraft III", "?", "W3"},
	{"destiny2", "Destiny 2", "1146311730", "DST2"},
	{"hs_beta", "Hearthstone", "1465140039", "WTCG"},
	{"heroes", "Heroes of the Storm", "1214607983", "Hero"},
	{"d3cn", "暗黑破壞神III", "?", "D3CN"},
	{"diablo3", "Diablo III", "17459", "D3"},
	{"viper", "Call of Duty: Black Ops 4", "1447645266", "VIPR"},
}

// Registry is an immutable lookup table over catalog entries. Build one
// with Default (the compiled-in table) or NewRegistry and share it freely;
// all methods are safe for concurrent use.
type Registry struct {
	list  []Entry
	byKey map[string]int
}

// NewRegistry builds a registry from the given entries. Each entry is
// indexed under its UID, its ID and its NFC-normalized display name.
// When two entries claim the same key, the earlier one wins.
func NewRegistry(list []Entry) *Registry {
	r := &Registry{
		list:  make([]Entry, len(list)),
		byKey: make(map[string]int, len(list)*3),
	}
	copy(r.list, list)
	for i, e := range r.list {
		r.index(e.UID, i)
		r.index(e.ID, i)
		r.index(norm.NFC.String(e.Name), i)
	}
	return r
}

func (r *Registry) index(key string, i int) {
	if key == "" {
		return
	}
	if _, taken := r.byKey[key]; !taken {
		r.byKey[key] = i
	}
}

// Default returns a registry over the compiled-in game table.
func Default() *Registry {
	return NewRegistry(entries)
}

// Lookup resolves a game by UID, external ID or display name. Display
// names are compared NFC-normalized, so both composed and decomposed
// spellings of the same name resolve.
func (r *Registry) Lookup(key string) (Entry, bool) {
	if i, ok := r.byKey[key]; ok {
		return r.list[i], true
	}
	if i, ok := r.byKey[norm.NFC.String(key)]; ok {
		return r.list[i], true
	}
	return Entry{}, false
}

// Entries returns a copy of the table in declaration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.list))
	copy(out, r.list)
	return out
}

// Len reports the number of entries in the registry.
func (r *Registry) Len() int {
	return len(r.list)
}
