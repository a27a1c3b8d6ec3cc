package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Game    string
	Limit   int
}

// HistoryEntry is one recorded transition in the history output.
type HistoryEntry struct {
	Seq          int64  `json:"seq"`
	RecordedAt   string `json:"recorded_at"`
	GameID       string `json:"game_id"`
	State        string `json:"state"`
	RefreshToken string `json:"refresh_token"`
}

// HistoryResult is the journal dump.
type HistoryResult struct {
	Count       int            `json:"count"`
	Transitions []HistoryEntry `json:"transitions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded state transitions",
		Long: `Read the transition journal and list recorded state changes, newest
first.

The journal path comes from the configuration unless --journal is
given. Watch runs record into the journal when one is configured.

Examples:
  bnetlocal history --journal ./journal.db --limit 10
  bnetlocal history --game 5730135`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the journal database (defaults to the configured one)")
	cmd.Flags().StringVar(&opts.Game, "game", "", "only show transitions for this game ID")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of transitions")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	path := opts.Journal
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		path = cfg.JournalPath
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --journal or configure one")
	}

	store, err := journal.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	var transitions []journal.Transition
	if opts.Game != "" {
		transitions, err = store.GameTransitions(ctx, opts.Game, opts.Limit)
	} else {
		transitions, err = store.RecentTransitions(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	entries := make([]HistoryEntry, 0, len(transitions))
	for _, tr := range transitions {
		entries = append(entries, HistoryEntry{
			Seq:          tr.Seq,
			RecordedAt:   tr.RecordedAt.UTC().Format(time.RFC3339),
			GameID:       tr.GameID,
			State:        tr.State.String(),
			RefreshToken: tr.RefreshToken,
		})
	}

	result := HistoryResult{Count: len(entries), Transitions: entries}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return outputHistoryText(cmd, result, opts.Verbose)
}

// outputHistoryText renders the journal dump as text.
func outputHistoryText(cmd *cobra.Command, result HistoryResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.Count == 0 {
		fmt.Fprintln(w, "No transitions recorded.")
		return nil
	}
	fmt.Fprintf(w, "Transitions: %d\n", result.Count)
	for _, e := range result.Transitions {
		fmt.Fprintf(w, "  [%d] %s  %s  %s\n", e.Seq, e.RecordedAt, e.GameID, e.State)
		if verbose {
			fmt.Fprintf(w, "      refresh: %s\n", e.RefreshToken)
		}
	}
	return nil
}
