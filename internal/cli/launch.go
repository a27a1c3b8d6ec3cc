package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/engine"
	"github.com/mtarnawa/bnetlocal/internal/proc"
)

// LaunchOptions holds flags for the launch command.
type LaunchOptions struct {
	*RootOptions
	Timeout time.Duration

	// Starter allows overriding the process spawner (for testing).
	// If nil, defaults to exec-based spawning.
	Starter client.Starter

	// Enumerator allows overriding the system process source (for testing).
	Enumerator proc.Enumerator
}

// ActionResult reports a completed client action.
type ActionResult struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	UID    string `json:"uid"`
	Name   string `json:"name"`
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LaunchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "launch <game>",
		Short: "Launch an installed game through the client",
		Long: `Launch an installed game through the desktop client.

The game may be named by UID ("wow"), external ID ("5730135") or
display name. The client is prepared first if it is not ready, then
the launch is confirmed by waiting for one of the game's executables
to appear in the process table.

Examples:
  bnetlocal launch wow
  bnetlocal launch "StarCraft II" --timeout 2m`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "override the configured launch timeout")

	return cmd
}

func runLaunch(opts *LaunchOptions, key string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.LauncherPath == "" {
		return NewExitError(ExitCommandError, "no launcher: configure the launcher path")
	}

	entry, err := resolveEntry(key)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var engOpts []engine.Option
	if opts.Enumerator != nil {
		engOpts = append(engOpts, engine.WithEnumerator(opts.Enumerator))
	}
	g, err := resolveInstalled(ctx, cfg, entry, engOpts...)
	if err != nil {
		return err
	}
	if !g.Playable() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is still installing", entry.Name))
	}

	var clientOpts []client.Option
	if opts.Starter != nil {
		clientOpts = append(clientOpts, client.WithStarter(opts.Starter))
	}
	if opts.Enumerator != nil {
		clientOpts = append(clientOpts, client.WithEnumerator(opts.Enumerator))
	}
	c := client.New(cfg.LauncherPath, clientOpts...)

	timeout := cfg.LaunchTimeout.Std()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	if err := c.Launch(ctx, g, timeout); err != nil {
		switch {
		case errors.Is(err, client.ErrNotInstalled):
			return WrapExitError(ExitCommandError, "launcher is not installed", err)
		case errors.Is(err, client.ErrLaunchTimeout):
			return WrapExitError(ExitFailure, fmt.Sprintf("launch of %s not confirmed", entry.Name), err)
		default:
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to launch %s", entry.Name), err)
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), ActionResult{Action: "launch", ID: entry.ID, UID: entry.UID, Name: entry.Name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Launched %s.\n", entry.Name)
	return nil
}
