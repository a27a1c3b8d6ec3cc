package cli

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtarnawa/bnetlocal/internal/testutil"
)

func TestUninstallAgentFlow(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	f.writeClientConfig(t, "plPL", "EU", defaultGames())
	uninstaller := filepath.Join(f.AgentDir, "Blizzard Uninstaller.exe")
	require.NoError(t, os.WriteFile(uninstaller, []byte("uninstaller"), 0o755))

	starter := &testutil.Starter{}
	opts := &UninstallOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		OS:          "windows",
		Starter:     starter,
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runUninstall(opts, "wow", cmd))

	started := starter.Started()
	require.Len(t, started, 1)
	assert.Equal(t, f.AgentDir, started[0].Dir)
	assert.Equal(t, uninstaller, started[0].Name)
	assert.Equal(t, []string{"--lang=plPL", "--uid=wow", "--displayname=World of Warcraft"}, started[0].Args)
	assert.Equal(t, "Uninstall started for World of Warcraft.\n", buf.String())
}

func TestUninstallRemoveTree(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	wowExe := f.installWoW(t)
	installDir := filepath.Dir(wowExe)

	opts := &UninstallOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		OS:          "darwin",
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runUninstall(opts, "wow", cmd))

	_, err := os.Stat(installDir)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "Uninstall started for World of Warcraft.\n", buf.String())
}

func TestUninstallMissingUninstaller(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())

	opts := &UninstallOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		OS:          "windows",
		Starter:     &testutil.Starter{},
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runUninstall(opts, "wow", cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to uninstall World of Warcraft")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestUninstallNotInstalled(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())

	opts := &UninstallOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		OS:          "windows",
		Starter:     &testutil.Starter{},
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runUninstall(opts, "heroes", cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Heroes of the Storm is not installed")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
