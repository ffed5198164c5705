package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
)

var (
	suggestRecord    recordFlags
	suggestJSON      bool
	suggestShowQuery bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest ontology mappings for a record",
	Long: `Ranks candidate mappings for one source record. Suggestions come from
curated rules and ontology terms and carry a relative score from 0 to 100.

Example:
  ontomap suggest --kind treatment -a treatment_name=Cisplatin -a data_source=pdx`,
	Args: cobra.NoArgs,
	RunE: runSuggest,
}

func init() {
	suggestRecord.register(suggestCmd)
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "output suggestions as JSON")
	suggestCmd.Flags().BoolVar(&suggestShowQuery, "show-query", false, "print the search query before the results")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Engine == nil {
		return errors.New("suggestion engine not configured")
	}

	record, err := suggestRecord.record()
	if err != nil {
		return err
	}

	if suggestShowQuery {
		if inspector, ok := services.Engine.(driving.QueryInspector); ok {
			q, err := inspector.BuildQuery(record)
			if err != nil {
				return fmt.Errorf("build query: %w", err)
			}
			cmd.Printf("Query: %s\n\n", q)
		}
	}

	suggestions, err := services.Engine.Suggest(cmd.Context(), record)
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}

	if suggestJSON {
		return printJSON(cmd, suggestions)
	}
	printSuggestions(cmd, suggestions)
	return nil
}

func printSuggestions(cmd *cobra.Command, suggestions []domain.Suggestion) {
	if len(suggestions) == 0 {
		cmd.Println("No suggestions found.")
		return
	}

	cmd.Println("Suggestions:")
	cmd.Println()
	for i, s := range suggestions {
		label := s.TermLabel
		if label == "" {
			label = s.TermURL
		}
		cmd.Printf("  [%d] %s (%.1f)\n", i+1, label, s.RelativeScore)
		cmd.Printf("      %s via %s\n", s.TermURL, s.SourceKind)
	}
	cmd.Println()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
