// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kb-ingest/internal/graph"
)

const interactiveDefaultLimit = 5

var queryCmd = &cobra.Command{
	Use:   "query [terms]",
	Short: "Search ingested episodes with full-text search",
	Long: `Query searches stored episodes using FTS5 full-text search, optionally
filtered by source description. Results are ranked by relevance.

With --interactive, query starts a prompt loop that reads queries and a
result limit from stdin until 'exit' or 'quit'.

Only the sqlite backend supports querying; searching a hosted graph
service is done through that service's own tools.`,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := graphConfig(cmd)
	store, err := graph.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		return interactiveQuery(cmd.Context(), store, os.Stdin, os.Stdout)
	}

	opts := searchOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search terms, --source, or --interactive")
	}

	results, err := store.Search(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(os.Stdout, results, jsonOutput)
}

// interactiveQuery runs a prompt loop over the store: each round reads a
// query line and an optional result limit, then prints the matches. The
// loop ends on 'exit', 'quit', or end of input.
func interactiveQuery(ctx context.Context, store *graph.Store, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter your query below. Type 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nEnter your query: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if lower := strings.ToLower(query); lower == "exit" || lower == "quit" {
			break
		}

		limit := interactiveDefaultLimit
		fmt.Fprintf(out, "Number of results to show (default: %d): ", interactiveDefaultLimit)
		if scanner.Scan() {
			raw := strings.TrimSpace(scanner.Text())
			if raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 1 {
					fmt.Fprintf(out, "Invalid number, using default limit of %d.\n", interactiveDefaultLimit)
				} else {
					limit = parsed
				}
			}
		}

		results, err := store.Search(ctx, graph.SearchOptions{Query: query, MaxResults: limit})
		if err != nil {
			return err
		}
		if err := formatQueryOutput(out, results, false); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func formatQueryOutput(w io.Writer, results []graph.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-60s  %s\n",
		"Rank", "Name", "Body", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range results {
		body := truncate(strings.ReplaceAll(r.Body, "\n", " "), 60)
		name := truncate(r.Name, 20)
		fmt.Fprintf(w, "%-4d  %-20s  %-60s  %s\n",
			i+1, name, body, r.SourceDescription)
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// truncate shortens s to at most max runes, ending with an ellipsis.
// Slicing by rune keeps multi-byte characters intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func searchOptsFromFlags(cmd *cobra.Command, args []string) graph.SearchOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")

	return graph.SearchOptions{
		Query:      queryText,
		Source:     source,
		MaxResults: limit,
	}
}

func init() {
	queryCmd.Flags().String("query", "", "full-text search query")
	queryCmd.Flags().String("source", "", "filter by source description")
	queryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	queryCmd.Flags().Bool("interactive", false, "read queries from stdin in a prompt loop")
	addGraphFlags(queryCmd)

	rootCmd.AddCommand(queryCmd)
}
