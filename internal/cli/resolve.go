package cli

import (
	"context"
	"fmt"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/config"
	"github.com/mtarnawa/bnetlocal/internal/engine"
	"github.com/mtarnawa/bnetlocal/internal/game"
)

// resolveEntry maps a user-supplied game key to a catalog entry. The key
// may be a UID ("wow"), an external ID ("5730135") or a display name.
func resolveEntry(key string) (catalog.Entry, error) {
	entry, ok := catalog.Default().Lookup(key)
	if !ok {
		return catalog.Entry{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown game %q", key))
	}
	return entry, nil
}

// resolveInstalled runs one refresh pass over the configured installation
// and returns the installed game for the entry.
func resolveInstalled(ctx context.Context, cfg *config.Config, entry catalog.Entry, opts ...engine.Option) (*game.InstalledGame, error) {
	eng := engine.New(catalog.Default(), engine.FileSource{
		DBPath:     cfg.ProductDBPath(),
		ConfigPath: cfg.ClientConfigPath,
	}, opts...)
	defer eng.Close()

	eng.Refresh(ctx)
	g, ok := eng.Game(entry.ID)
	if !ok {
		return nil, NewExitError(ExitFailure, fmt.Sprintf("%s is not installed", entry.Name))
	}
	return g, nil
}
