package engine

import (
	"log/slog"
	"sort"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/clientconfig"
	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/pathfind"
	"github.com/mtarnawa/bnetlocal/internal/productdb"
)

// Snapshot is one refresh pass's view of the installed games, keyed by
// external game ID. Snapshots are never mutated after they are built;
// readers hold them as long as they like.
type Snapshot map[string]*game.InstalledGame

// join merges the two local data sources into a snapshot. The database
// drives the merge: a game exists when a database record's uninstall tag
// matches a config record's, and the config record's UID resolves in the
// catalog. Install path and version come from the database, identity and
// last-played time from the config side.
func join(db *productdb.DB, cfg *clientconfig.Config, cat *catalog.Registry, locate pathfind.Locator) Snapshot {
	byTag := make(map[string]clientconfig.GameRecord, len(cfg.Games))
	for _, rec := range cfg.Games {
		if rec.UninstallTag == "" {
			continue
		}
		if _, dup := byTag[rec.UninstallTag]; !dup {
			byTag[rec.UninstallTag] = rec
		}
	}

	out := make(Snapshot)
	for _, dbRec := range db.Games() {
		conf, ok := byTag[dbRec.UninstallTag]
		if !ok {
			continue
		}
		entry, ok := cat.Lookup(conf.UID)
		if !ok {
			slog.Warn("config names a game this build does not know, skipping", "uid", conf.UID)
			continue
		}
		execs := locate.Executables(dbRec.InstallPath)
		out[entry.ID] = game.New(entry, dbRec.UninstallTag, dbRec.Version, conf.LastPlayed, dbRec.InstallPath, execs)
	}
	return out
}

func sortedIDs(s Snapshot) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
