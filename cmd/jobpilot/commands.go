package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/extract"
	"github.com/okofler/jobpilot/internal/recommend"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all catalog sources and persist fresh snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		source, _ := cmd.Flags().GetString("source")

		var results []catalog.RefreshResult
		if source != "" {
			results = []catalog.RefreshResult{a.cache.Refresh(cmd.Context(), source)}
		} else {
			results = a.cache.RefreshAll(cmd.Context())
		}

		if len(results) == 0 {
			printWarning("no catalog sources configured")
			return nil
		}

		failed := 0
		for _, res := range results {
			if res.Success {
				printSuccess("%s: %d artifacts", res.Source, res.Count)
			} else {
				failed++
				printError("%s: %s", res.Source, res.Error)
			}
		}
		if failed == len(results) {
			return fmt.Errorf("all %d sources failed", failed)
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a job posting from a file or stdin",
	Long: `Analyze a job posting from a file or stdin.

Examples:
  jobpilot analyze posting.txt
  jobpilot analyze posting.pdf --title "Buchhalter (m/w/d)"
  cat posting.txt | jobpilot analyze --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		asJSON, _ := cmd.Flags().GetBool("json")

		text, err := readPosting(args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("no posting text provided")
		}

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		analysis := a.advisor.Analyze(cmd.Context(), recommend.Request{
			JobTitle: title,
			Text:     text,
		})

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}

		printAnalysis(analysis)
		return nil
	},
}

func init() {
	refreshCmd.Flags().String("source", "", "refresh a single source instead of all")
	analyzeCmd.Flags().String("title", "", "job title for industry context")
	analyzeCmd.Flags().Bool("json", false, "print the full analysis as JSON")
}

func readPosting(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		text, err := extract.FromPDFBytes(data)
		if err != nil {
			return "", fmt.Errorf("reading pdf: %w", err)
		}
		return text, nil
	}
	return string(data), nil
}

func printAnalysis(analysis recommend.Analysis) {
	fmt.Printf("%s\n", colorize(colorBold, fmt.Sprintf("Analysis %s", analysis.ID)))
	fmt.Printf("  tasks: %d   avg score: %.1f   automatable: %d\n\n",
		analysis.Summary.TaskCount, analysis.Summary.AvgScore, analysis.Summary.AutomatableCount)

	for i, task := range analysis.Tasks {
		fmt.Printf("%s %s\n", colorize(colorBold, fmt.Sprintf("%d.", i+1)), task.Task)
		fmt.Printf("   score %d (%s), complexity %s, trend %s\n",
			task.Scoring.Score, task.Scoring.Label, task.Scoring.Complexity, task.Scoring.AutomationTrend)
		if len(task.Systems) > 0 {
			fmt.Printf("   systems: %s\n", strings.Join(task.Systems, ", "))
		}
		for _, m := range task.Matches {
			marker := string(m.Status)
			fmt.Printf("   → [%d] %s (%s, ~%.1fh/week)\n",
				m.Score, m.Artifact.Title, marker, m.EstimatedTimeSavingsHours)
			for _, reason := range m.Reasons {
				fmt.Printf("       %s\n", reason)
			}
		}
		if task.Blueprint != nil {
			fmt.Printf("   drafted %s blueprint with %d steps\n",
				task.Blueprint.SolutionType, len(task.Blueprint.Steps))
		}
		fmt.Println()
	}
}
