package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/productdb"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Launcher bool
}

// DecodeResult is the decoded product database dump.
type DecodeResult struct {
	Count   int                `json:"count"`
	Records []productdb.Record `json:"records"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [product.db]",
		Short: "Dump the decoded product database",
		Long: `Decode the agent's product database and dump every record it holds.

Without an argument the database path comes from the configuration.
Game records are listed by default; --launcher includes the client's
own pseudo-products (the launcher and the agent).

Examples:
  bnetlocal decode
  bnetlocal decode /tmp/product.db --launcher --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runDecode(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Launcher, "launcher", false, "include non-game products")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		path = cfg.ProductDBPath()
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no product database: pass a path or configure agent_dir")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read product database", err)
	}

	db := productdb.Decode(data)
	var records []productdb.Record
	if opts.Launcher {
		all := db.Records()
		codes := make([]string, 0, len(all))
		for code := range all {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		records = make([]productdb.Record, 0, len(all))
		for _, code := range codes {
			records = append(records, all[code])
		}
	} else {
		records = db.Games()
	}

	result := DecodeResult{Count: len(records), Records: records}
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return outputDecodeText(cmd, result)
}

// outputDecodeText renders the record dump as text.
func outputDecodeText(cmd *cobra.Command, result DecodeResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Products: %d\n", result.Count)
	for _, r := range result.Records {
		fmt.Fprintf(w, "\n%s\n", r.UninstallTag)
		fmt.Fprintf(w, "  code: %s\n", r.Code)
		fmt.Fprintf(w, "  path: %s\n", r.InstallPath)
		if r.Version != "" {
			fmt.Fprintf(w, "  version: %s\n", r.Version)
		} else {
			fmt.Fprintln(w, "  version: (pending)")
		}
	}
	return nil
}
