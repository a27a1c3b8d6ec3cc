package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/clientconfig"
)

// UninstallOptions holds flags for the uninstall command.
type UninstallOptions struct {
	*RootOptions

	// OS allows overriding the platform the uninstall strategy is picked
	// for (for testing). If empty, defaults to runtime.GOOS.
	OS string

	// Starter allows overriding the process spawner (for testing).
	Starter client.Starter
}

// NewUninstallCommand creates the uninstall command.
func NewUninstallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UninstallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "uninstall <game>",
		Short: "Uninstall a game",
		Long: `Uninstall an installed game.

On windows this hands the game to the agent's uninstaller, which asks
for confirmation in its own window. Elsewhere the install directory is
removed directly. The uninstaller UI follows the client's configured
language.

Examples:
  bnetlocal uninstall wow`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(opts, args[0], cmd)
		},
	}

	return cmd
}

func runUninstall(opts *UninstallOptions, key string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	entry, err := resolveEntry(key)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	g, err := resolveInstalled(ctx, cfg, entry)
	if err != nil {
		return err
	}

	// The uninstaller UI language follows the client's locale.
	locale := clientconfig.DefaultLocale
	if data, err := os.ReadFile(cfg.ClientConfigPath); err == nil {
		locale = clientconfig.Parse(data).Locale
	}

	goos := opts.OS
	if goos == "" {
		goos = runtime.GOOS
	}
	var un client.Uninstaller
	if goos == "darwin" {
		un = client.RemoveTreeUninstaller{}
	} else {
		un = client.AgentUninstaller{Path: cfg.UninstallerPath(), Starter: opts.Starter}
	}

	if err := un.Uninstall(ctx, g, locale); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("failed to uninstall %s", entry.Name), err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), ActionResult{Action: "uninstall", ID: entry.ID, UID: entry.UID, Name: entry.Name})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uninstall started for %s.\n", entry.Name)
	return nil
}
