package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alnah/go-narrate/internal/job"
)

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// writeResultJSON writes res as indented JSON.
func writeResultJSON(w io.Writer, res job.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// renderResultTable renders the job items as a rounded table.
func renderResultTable(res job.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Audio", "Subtitles", "Blocks", "Sample rate"})

	for _, item := range res.Results {
		srtPath := "-"
		blocks := "-"
		if item.SRTPath != nil {
			srtPath = *item.SRTPath
			blocks = strconv.Itoa(item.SubtitleBlocks)
		}
		tw.AppendRow(table.Row{item.PromptIndex + 1, item.AudioPath, srtPath, blocks, item.SampleRate})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

// printResult writes a table on a terminal and JSON otherwise.
func printResult(env *Env, res job.Result, forceJSON bool) error {
	if !forceJSON && env.IsTerminal(env.Stdout) {
		_, err := fmt.Fprintln(env.Stdout, renderResultTable(res))
		return err
	}
	return writeResultJSON(env.Stdout, res)
}
