package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/history"
)

// ErrNoHistory indicates that no history database was named.
var ErrNoHistory = errors.New("no history database (set --db or " + EnvHistory + ")")

// HistoryCmd creates the history command.
// The env parameter provides injectable dependencies for testing.
func HistoryCmd(env *Env) *cobra.Command {
	var (
		dbPath   string
		limit    int
		jsonOut  bool
		failures bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded narration jobs",
		Long: `List jobs recorded by generate, run, serve and worker when they were
started with --history (or ` + EnvHistory + `). Newest jobs come first.`,
		Example: `  narrate history --db ~/narrate/history.db
  narrate history --limit 50 --failures --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), env, firstNonEmpty(dbPath, env.Getenv(EnvHistory)), limit, failures, jsonOut)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite job history file (env: "+EnvHistory+")")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum number of jobs listed")
	cmd.Flags().BoolVar(&failures, "failures", false, "Only list failed jobs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON even on a terminal")

	return cmd
}

func runHistory(ctx context.Context, env *Env, dbPath string, limit int, failures, jsonOut bool) error {
	if dbPath == "" {
		return ErrNoHistory
	}
	dbPath = config.ExpandPath(dbPath)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, dbPath)
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if failures {
		kept := entries[:0]
		for _, e := range entries {
			if e.Failed() {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if jsonOut || !env.IsTerminal(env.Stdout) {
		if entries == nil {
			entries = []history.Entry{}
		}
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(env.Stdout, "No jobs recorded.")
		return nil
	}
	fmt.Fprintln(env.Stdout, renderHistoryTable(entries))
	return nil
}

// renderHistoryTable renders entries as a rounded table.
func renderHistoryTable(entries []history.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"ID", "Started", "Source", "Prompts", "SRT", "Outputs", "Elapsed", "Status"})

	for _, e := range entries {
		srtCol := "no"
		if e.SRT {
			srtCol = "yes"
		}
		status := "ok"
		if e.Failed() {
			status = "failed: " + truncate(e.Error, 48)
		}
		tw.AppendRow(table.Row{
			e.ID,
			e.StartedAt.Local().Format(time.DateTime),
			e.Source,
			e.Prompts,
			srtCol,
			e.Outputs,
			e.Elapsed.Round(time.Millisecond).String(),
			status,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return tw.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
