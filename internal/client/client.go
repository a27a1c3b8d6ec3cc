// Package client drives the installed desktop launcher: liveness checks,
// bringing it to the foreground for a game, and the install, launch and
// uninstall flows that shell out to it.
//
// The launcher is a black box reached only through its command line. The
// client never reads a spawned process's output and never waits for it;
// confirmation comes from watching the process table, with timeouts as
// the only failure signal.
package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/proc"
)

// Sentinel errors callers branch on.
var (
	ErrNotInstalled  = errors.New("desktop client is not installed")
	ErrLaunchTimeout = errors.New("timed out waiting for the game to start")
)

// Poll cadences observed in the desktop client: window readiness at
// 200ms, game process appearance at 500ms.
const (
	preparePollInterval = 200 * time.Millisecond
	launchPollInterval  = 500 * time.Millisecond
)

// DefaultLaunchTimeout bounds the whole launch flow, preparation
// included.
const DefaultLaunchTimeout = 60 * time.Second

// Starter spawns detached processes.
type Starter interface {
	Start(ctx context.Context, dir, name string, args ...string) error
}

// ExecStarter is the production Starter. Spawned processes outlive the
// calling context; ctx only gates the spawn itself.
type ExecStarter struct{}

// Start launches the command detached, reaping it in the background.
func (ExecStarter) Start(ctx context.Context, dir, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}

// WindowProbe reports whether the launcher's main window is open, as
// opposed to the login window. Platform-specific and optional: without a
// probe a running launcher process counts as ready.
type WindowProbe interface {
	MainWindowOpen() bool
}

// Client is the launcher facade.
type Client struct {
	exe     string
	starter Starter
	enum    proc.Enumerator
	probe   WindowProbe
	stat    func(string) bool

	mu        sync.Mutex
	installed bool
	proc      game.Process
}

// Option configures a Client.
type Option func(*Client)

// WithStarter sets the process starter.
func WithStarter(s Starter) Option {
	return func(c *Client) { c.starter = s }
}

// WithEnumerator sets the process enumerator.
func WithEnumerator(e proc.Enumerator) Option {
	return func(c *Client) { c.enum = e }
}

// WithWindowProbe sets the main-window probe.
func WithWindowProbe(p WindowProbe) Option {
	return func(c *Client) { c.probe = p }
}

// WithStat replaces the file-existence check used for discovery.
func WithStat(stat func(string) bool) Option {
	return func(c *Client) { c.stat = stat }
}

// New builds a Client around the launcher executable path. The path may
// not exist yet; Installed reports the check made here and Rediscover
// re-runs it after installs or uninstalls.
func New(exe string, opts ...Option) *Client {
	c := &Client{
		exe:     exe,
		starter: ExecStarter{},
		enum:    proc.SystemEnumerator{},
		stat:    fileExists,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.installed = c.stat(exe)
	return c
}

// Exe returns the launcher executable path.
func (c *Client) Exe() string { return c.exe }

// Installed reports the cached installation check.
func (c *Client) Installed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installed
}

// Rediscover re-checks the executable on disk. The engine calls this when
// the database's launcher record disagrees with the cached check.
func (c *Client) Rediscover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.installed = c.stat(c.exe)
	slog.Debug("launcher rediscovered", "exe", c.exe, "installed", c.installed)
}

// Running reports whether the launcher process is live. The last found
// process is cached; the table is rescanned only once it dies.
func (c *Client) Running(ctx context.Context) (bool, error) {
	c.mu.Lock()
	cached := c.proc
	c.mu.Unlock()
	if cached != nil {
		if alive, err := cached.Running(); err == nil && alive {
			return true, nil
		}
	}

	p, err := proc.Find(ctx, c.enum, c.exe)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.proc = p
	c.mu.Unlock()
	return p != nil, nil
}

// Install asks the launcher to open its install view for the given
// product UID. The flow ends there; installation progress shows up in the
// product database like any other change.
func (c *Client) Install(ctx context.Context, uid string) error {
	if !c.Installed() {
		return ErrNotInstalled
	}
	if err := c.start(ctx, "--install", "--game="+uid); err != nil {
		return fmt.Errorf("failed to open install view: %w", err)
	}
	return nil
}

// Launch brings the launcher up on the game's view, issues the launch
// command and waits for the game's process to appear. The timeout bounds
// the whole flow; exceeding it returns ErrLaunchTimeout. Launches are
// never retried.
func (c *Client) Launch(ctx context.Context, g *game.InstalledGame, timeout time.Duration) error {
	if !c.Installed() {
		return ErrNotInstalled
	}
	deadline := time.Now().Add(timeout)

	if err := c.prepare(ctx, g.Info.UID, deadline); err != nil {
		return err
	}

	if err := c.start(ctx, "--exec=launch "+g.Info.Family); err != nil {
		return fmt.Errorf("failed to issue launch command: %w", err)
	}
	slog.Info("launch issued, waiting for the game process", "game", g.Info.UID)

	for time.Now().Before(deadline) {
		found, err := c.gameProcessPresent(ctx, g)
		if err != nil {
			slog.Warn("process scan failed while waiting for the game", "err", err)
		}
		if found {
			return nil
		}
		if err := sleepCtx(ctx, launchPollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %s", ErrLaunchTimeout, timeout)
}

// prepare makes sure the launcher is up with its main window open on the
// game's view. Already up means nothing to do; otherwise start it and
// poll readiness until the deadline.
func (c *Client) prepare(ctx context.Context, uid string, deadline time.Time) error {
	running, err := c.Running(ctx)
	if err != nil {
		return fmt.Errorf("failed to check the launcher process: %w", err)
	}
	if running && c.ready(ctx) {
		return nil
	}

	if err := c.start(ctx, "--game="+uid); err != nil {
		return fmt.Errorf("failed to start the launcher: %w", err)
	}
	for time.Now().Before(deadline) {
		if c.ready(ctx) {
			slog.Debug("launcher ready")
			return nil
		}
		if err := sleepCtx(ctx, preparePollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: launcher never became ready", ErrLaunchTimeout)
}

// ready is the launch gate: the probe's word when one is wired, process
// presence otherwise.
func (c *Client) ready(ctx context.Context) bool {
	if c.probe != nil {
		return c.probe.MainWindowOpen()
	}
	running, err := c.Running(ctx)
	return err == nil && running
}

// gameProcessPresent scans the whole table for any of the game's
// executables. Games do not reliably spawn as launcher children, so a
// child walk would miss them.
func (c *Client) gameProcessPresent(ctx context.Context, g *game.InstalledGame) (bool, error) {
	procs, err := c.enum.Processes(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil {
			continue
		}
		if g.HasExec(exe) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) start(ctx context.Context, args ...string) error {
	return c.starter.Start(ctx, filepath.Dir(c.exe), c.exe, args...)
}

// Uninstaller removes one game installation.
type Uninstaller interface {
	Uninstall(ctx context.Context, g *game.InstalledGame, lang string) error
}

// AgentUninstaller shells out to the agent's uninstaller binary with the
// same arguments the launcher itself passes.
type AgentUninstaller struct {
	// Path is the uninstaller binary.
	Path string
	// Starter used to spawn it; nil means ExecStarter.
	Starter Starter
}

// Uninstall runs the uninstaller for the game's uninstall tag.
func (u AgentUninstaller) Uninstall(ctx context.Context, g *game.InstalledGame, lang string) error {
	if !fileExists(u.Path) {
		return fmt.Errorf("uninstaller %s: %w", u.Path, fs.ErrNotExist)
	}
	starter := u.Starter
	if starter == nil {
		starter = ExecStarter{}
	}
	args := []string{
		"--lang=" + lang,
		"--uid=" + g.UninstallTag,
		"--displayname=" + g.Info.Name,
	}
	if err := starter.Start(ctx, filepath.Dir(u.Path), u.Path, args...); err != nil {
		return fmt.Errorf("failed to run uninstaller: %w", err)
	}
	return nil
}

// RemoveTreeUninstaller deletes the install directory outright. The
// darwin agent ships no uninstaller binary.
type RemoveTreeUninstaller struct{}

// Uninstall removes the game's install path from disk.
func (RemoveTreeUninstaller) Uninstall(ctx context.Context, g *game.InstalledGame, lang string) error {
	if g.InstallPath == "" {
		return errors.New("game has no install path")
	}
	slog.Info("removing install directory", "path", g.InstallPath)
	if err := os.RemoveAll(g.InstallPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", g.InstallPath, err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
