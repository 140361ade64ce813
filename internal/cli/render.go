package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

var (
	heading  = color.New(color.Bold).SprintFunc()
	good     = color.New(color.FgGreen, color.Bold).SprintFunc()
	degraded = color.New(color.FgYellow, color.Bold).SprintFunc()
	bad      = color.New(color.FgRed, color.Bold).SprintFunc()
	faint    = color.New(color.Faint).SprintFunc()
)

func setDefaultLogger(l *slog.Logger) {
	slog.SetDefault(l)
}

func printResponse(w io.Writer, resp *domain.Response, asJSON bool) error {
	if asJSON {
		return writeJSON(w, resp)
	}

	answer := good(resp.Answer)
	switch {
	case resp.Answer == domain.AnswerError:
		answer = bad(resp.Answer)
	case resp.Failure != domain.FailureNone:
		answer = degraded(resp.Answer)
	}
	fmt.Fprintf(w, "%s %s\n", heading("Answer:"), answer)
	fmt.Fprintf(w, "%s %s\n", heading("Reasoning:"), resp.Reasoning)
	if resp.Failure != domain.FailureNone {
		fmt.Fprintf(w, "%s\n", faint("failure: "+string(resp.Failure)))
	}

	for i, c := range resp.Contexts.Local {
		fmt.Fprintf(w, "\n%s\n%s\n", heading(fmt.Sprintf("Local context %d", i+1)), indent(c))
	}
	for i, c := range resp.Contexts.Web {
		fmt.Fprintf(w, "\n%s\n%s\n", heading(fmt.Sprintf("Web context %d", i+1)), indent(c))
	}
	return nil
}

func printResults(w io.Writer, results []domain.SearchResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, degraded("no matching chunks"))
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%s %s\n%s\n\n",
			heading(fmt.Sprintf("#%d chunk %d", i+1, r.ChunkID)),
			faint(fmt.Sprintf("distance=%.4f", r.Distance)),
			indent(r.Text),
		)
	}
	return nil
}

func printStats(w io.Writer, stats domain.IndexStats, asJSON bool) error {
	if asJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "%s %d\n", heading("Chunks:"), stats.Chunks)
	fmt.Fprintf(w, "%s %d\n", heading("Dimension:"), stats.Dimension)
	fmt.Fprintf(w, "%s %s\n", heading("Embedding model:"), stats.Model)
	if !stats.BuiltAt.IsZero() {
		fmt.Fprintf(w, "%s %s\n", heading("Built at:"), stats.BuiltAt.Format(time.RFC3339))
	}
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", bad("error:"), err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func indent(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func readAll(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read question from stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
