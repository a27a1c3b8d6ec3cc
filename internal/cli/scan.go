package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/engine"
	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/proc"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions

	// Enumerator allows overriding the system process source (for testing).
	// If nil, defaults to proc.SystemEnumerator.
	Enumerator proc.Enumerator
}

// ScanGame is one game's row in the scan report.
type ScanGame struct {
	ID          string     `json:"id"`
	UID         string     `json:"uid"`
	Name        string     `json:"name"`
	State       game.State `json:"state"`
	Version     string     `json:"version,omitempty"`
	InstallPath string     `json:"install_path,omitempty"`
}

// ScanResult is the complete scan report.
type ScanResult struct {
	LauncherInstalled bool       `json:"launcher_installed"`
	Games             []ScanGame `json:"games"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report the current state of every known game",
		Long: `Run one refresh pass over the local installation and report each known
game's state.

Reads the agent's product database and the client config, joins them
against the compiled-in catalog and correlates the result with the
process table. A game is installed while its install is complete and
running while one of its executables has a live process.

Examples:
  bnetlocal scan
  bnetlocal scan --config ./bnetlocal.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, cmd)
		},
	}

	return cmd
}

func runScan(opts *ScanOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	launcher := client.New(cfg.LauncherPath)

	engOpts := []engine.Option{engine.WithLauncherProbe(launcher)}
	if opts.Enumerator != nil {
		engOpts = append(engOpts, engine.WithEnumerator(opts.Enumerator))
	}
	eng := engine.New(catalog.Default(), engine.FileSource{
		DBPath:     cfg.ProductDBPath(),
		ConfigPath: cfg.ClientConfigPath,
	}, engOpts...)
	defer eng.Close()

	ctx := cmd.Context()
	eng.Refresh(ctx)

	statuses, err := eng.Statuses(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to scan processes", err)
	}

	result := ScanResult{
		LauncherInstalled: launcher.Installed(),
		Games:             make([]ScanGame, 0, len(statuses)),
	}
	for _, st := range statuses {
		row := ScanGame{ID: st.ID, State: st.State}
		if g, ok := eng.Game(st.ID); ok {
			row.UID = g.Info.UID
			row.Name = g.Info.Name
			row.Version = g.Version
			row.InstallPath = g.InstallPath
		}
		result.Games = append(result.Games, row)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return outputScanText(cmd, result)
}

// outputScanText renders the scan report as text.
func outputScanText(cmd *cobra.Command, result ScanResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Launcher: %s\n", presence(result.LauncherInstalled))
	fmt.Fprintf(w, "Games: %d\n", len(result.Games))
	for _, g := range result.Games {
		fmt.Fprintf(w, "  %s  %s  [%s]\n", g.ID, g.Name, g.State)
	}
	return nil
}

func presence(installed bool) string {
	if installed {
		return "installed"
	}
	return "missing"
}
