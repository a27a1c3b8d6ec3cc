package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/testutil"
)

func TestLaunchSuccess(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	wowExe := f.installWoW(t)

	// Launcher already up, game process appears immediately.
	starter := &testutil.Starter{}
	enum := testutil.NewEnumerator(
		testutil.NewProcess(7, f.Launcher),
		testutil.NewProcess(41, wowExe),
	)

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Starter:     starter,
		Enumerator:  enum,
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runLaunch(opts, "wow", cmd))

	started := starter.Started()
	require.Len(t, started, 1)
	assert.Equal(t, filepath.Dir(f.Launcher), started[0].Dir)
	assert.Equal(t, f.Launcher, started[0].Name)
	assert.Equal(t, []string{"--exec=launch WoW"}, started[0].Args)
	assert.Equal(t, "Launched World of Warcraft.\n", buf.String())
}

func TestLaunchPreparesLauncher(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	wowExe := f.installWoW(t)

	// Launcher not running yet: launch has to bring it up first. The
	// fake never spawns anything, so readiness comes from adding the
	// launcher process by hand.
	starter := &testutil.Starter{}
	enum := testutil.NewEnumerator(testutil.NewProcess(41, wowExe))

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Starter:     starter,
		Enumerator:  enum,
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	go func() {
		time.Sleep(50 * time.Millisecond)
		enum.Add(testutil.NewProcess(7, f.Launcher))
	}()

	require.NoError(t, runLaunch(opts, "wow", cmd))

	started := starter.Started()
	require.Len(t, started, 2)
	assert.Equal(t, []string{"--game=wow"}, started[0].Args)
	assert.Equal(t, []string{"--exec=launch WoW"}, started[1].Args)
}

func TestLaunchTimeout(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	f.installWoW(t)

	// Launcher is up but the game process never shows.
	starter := &testutil.Starter{}
	enum := testutil.NewEnumerator(testutil.NewProcess(7, f.Launcher))

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Timeout:     50 * time.Millisecond,
		Starter:     starter,
		Enumerator:  enum,
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runLaunch(opts, "wow", cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrLaunchTimeout)
	assert.Contains(t, err.Error(), "launch of World of Warcraft not confirmed")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Len(t, starter.Started(), 1)
}

func TestLaunchStillInstalling(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())

	starter := &testutil.Starter{}
	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Starter:     starter,
		Enumerator:  testutil.NewEnumerator(),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runLaunch(opts, "s2", cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StarCraft II is still installing")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, starter.Started())
}

func TestLaunchNotInstalled(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Starter:     &testutil.Starter{},
		Enumerator:  testutil.NewEnumerator(),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runLaunch(opts, "heroes", cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Heroes of the Storm is not installed")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLaunchUnknownGame(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runLaunch(opts, "sims4", cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown game "sims4"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLaunchLauncherMissing(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	f.installWoW(t)
	require.NoError(t, os.Remove(f.Launcher))

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: f.ConfigPath},
		Starter:     &testutil.Starter{},
		Enumerator:  testutil.NewEnumerator(),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := runLaunch(opts, "wow", cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotInstalled)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLaunchJSON(t *testing.T) {
	f := newFixture(t, defaultRecords(), defaultGames())
	wowExe := f.installWoW(t)

	opts := &LaunchOptions{
		RootOptions: &RootOptions{Format: "json", ConfigPath: f.ConfigPath},
		Starter:     &testutil.Starter{},
		Enumerator: testutil.NewEnumerator(
			testutil.NewProcess(7, f.Launcher),
			testutil.NewProcess(41, wowExe),
		),
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runLaunch(opts, "5730135", cmd))
	golden(t).Assert(t, "launch_json", buf.Bytes())
}
