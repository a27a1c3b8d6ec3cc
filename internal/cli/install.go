package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/client"
)

// InstallOptions holds flags for the install command.
type InstallOptions struct {
	*RootOptions

	// Starter allows overriding the process spawner (for testing).
	Starter client.Starter
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InstallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "install <game>",
		Short: "Open the client's install view for a game",
		Long: `Open the desktop client's install view for a game.

The client owns the actual download and install; this only brings up
its install view. Progress shows up in later scans as the agent
writes the product database.

Examples:
  bnetlocal install s2
  bnetlocal install "World of Warcraft"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(opts, args[0], cmd)
		},
	}

	return cmd
}

func runInstall(opts *InstallOptions, key string, cmd *cobra.Command) error {
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

	var clientOpts []client.Option
	if opts.Starter != nil {
		clientOpts = append(clientOpts, client.WithStarter(opts.Starter))
	}
	c := client.New(cfg.LauncherPath, clientOpts...)

	if err := c.Install(cmd.Context(), entry.UID); err != nil {
		if errors.Is(err, client.ErrNotInstalled) {
			return WrapExitError(ExitCommandError, "launcher is not installed", err)
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to open install view for %s", entry.Name), err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), ActionResult{Action: "install", ID: entry.ID, UID: entry.UID, Name: entry.Name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Install view opened for %s.\n", entry.Name)
	return nil
}
