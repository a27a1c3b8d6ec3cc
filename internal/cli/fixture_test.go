package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mtarnawa/bnetlocal/internal/testutil"
)

// fixture is a fake installation on disk: an agent dir with a product
// database, a client config, a launcher binary and a tool config file
// describing them.
type fixture struct {
	Root       string
	AgentDir   string
	ConfigPath string // tool config (YAML)
	ClientCfg  string // client config (JSON)
	Launcher   string
}

// newFixture lays out a fake installation with the given database records
// and client config games.
func newFixture(t *testing.T, records []testutil.ProductRecord, games []testutil.ConfigGame) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		Root:       root,
		AgentDir:   filepath.Join(root, "Agent"),
		ConfigPath: filepath.Join(root, "bnetlocal.yaml"),
		ClientCfg:  filepath.Join(root, "Battle.net.config"),
		Launcher:   filepath.Join(root, "Battle.net.exe"),
	}
	require.NoError(t, os.MkdirAll(f.AgentDir, 0o755))
	f.writeDB(t, records)
	f.writeClientConfig(t, "enUS", "EU", games)
	require.NoError(t, os.WriteFile(f.Launcher, []byte("launcher"), 0o755))
	f.writeConfig(t, "")
	return f
}

func (f *fixture) writeDB(t *testing.T, records []testutil.ProductRecord) {
	t.Helper()
	db := testutil.BuildProductDB(records...)
	require.NoError(t, os.WriteFile(filepath.Join(f.AgentDir, "product.db"), db, 0o644))
}

func (f *fixture) writeClientConfig(t *testing.T, locale, region string, games []testutil.ConfigGame) {
	t.Helper()
	data := testutil.BuildClientConfig(locale, region, games...)
	require.NoError(t, os.WriteFile(f.ClientCfg, data, 0o644))
}

// writeConfig writes the tool config file; extra is appended verbatim for
// per-test settings.
func (f *fixture) writeConfig(t *testing.T, extra string) {
	t.Helper()
	yaml := fmt.Sprintf("agent_dir: %s\nclient_config: %s\nlauncher: %s\n%s",
		f.AgentDir, f.ClientCfg, f.Launcher, extra)
	require.NoError(t, os.WriteFile(f.ConfigPath, []byte(yaml), 0o644))
}

// installWoW rewrites the database with wow installed at a real directory
// holding an executable, so process correlation and launch confirmation
// have something to find. Returns the executable path.
func (f *fixture) installWoW(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(f.Root, "Games", "WoW")
	exe := filepath.Join(dir, "Wow.exe")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(exe, []byte("game"), 0o755))
	records := defaultRecords()
	records[2].Path = dir
	f.writeDB(t, records)
	return exe
}

// defaultRecords is a typical agent database: the launcher itself, a
// finished WoW install and an SC2 install still downloading.
func defaultRecords() []testutil.ProductRecord {
	return []testutil.ProductRecord{
		{Tag: "battle.net", Code: "bna", Path: `C:\Program Files (x86)\Battle.net`, Version: "1.22.0.12847"},
		{Tag: "s2", Code: "s2", Path: `C:\Games\StarCraft II`},
		{Tag: "wow", Code: "wow", Path: `C:\Games\World of Warcraft`, Version: "8.2.5.32028"},
	}
}

func defaultGames() []testutil.ConfigGame {
	return []testutil.ConfigGame{
		{UID: "s2", Tag: "s2"},
		{UID: "wow", Tag: "wow", LastPlayed: "1566200000"},
	}
}
