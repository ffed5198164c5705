package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

var (
	automapRecord recordFlags
	automapAll    bool
	automapJSON   bool
)

var automapCmd = &cobra.Command{
	Use:   "automap",
	Short: "Map records automatically when suggestions are confident",
	Long: `Runs suggest then decide. A record is mapped when one suggestion reaches
the perfect threshold, or when the top acceptable suggestions agree on the
same term. Everything else is left for review.

With --all, every unmapped stored record of --kind is processed.`,
	Args: cobra.NoArgs,
	RunE: runAutomap,
}

func init() {
	automapRecord.register(automapCmd)
	automapCmd.Flags().BoolVar(&automapAll, "all", false, "process every unmapped stored record of the kind")
	automapCmd.Flags().BoolVar(&automapJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(automapCmd)
}

func runAutomap(cmd *cobra.Command, _ []string) error {
	if services == nil || services.AutoMap == nil {
		return errors.New("automatic mapping not configured")
	}

	if automapAll {
		kind, err := domain.ParseEntityKind(automapRecord.kind)
		if err != nil {
			return fmt.Errorf("%w: %q", err, automapRecord.kind)
		}
		summary, err := services.AutoMap.MapAll(cmd.Context(), kind)
		if automapJSON {
			if jerr := printJSON(cmd, summary); jerr != nil {
				return jerr
			}
		} else {
			cmd.Printf("Processed %d records: %d perfect, %d consensus, %d for review, %d failed.\n",
				summary.Total, summary.Perfect, summary.Consensus, summary.Review, summary.Failed)
		}
		if err != nil {
			return fmt.Errorf("automap failed: %w", err)
		}
		return nil
	}

	record, err := automapRecord.record()
	if err != nil {
		return err
	}
	result, err := services.AutoMap.Map(cmd.Context(), record)
	if err != nil {
		return fmt.Errorf("automap failed: %w", err)
	}

	if automapJSON {
		return printJSON(cmd, result)
	}
	if !result.Decision.Accepted() {
		cmd.Printf("No decision (%d acceptable suggestions); record needs review.\n", result.Decision.Considered)
		return nil
	}
	chosen := result.Decision.Suggestion
	cmd.Printf("Mapped to %s (%s) by %s, relative score %.1f.\n",
		chosen.TermLabel, chosen.TermURL, result.Decision.Outcome, chosen.RelativeScore)
	return nil
}
