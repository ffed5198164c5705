package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the search index",
	Long:  `Replaces indexed rule or ontology documents with the current stored state.`,
}

var indexRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Index mapped rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if services == nil || services.Index == nil {
			return errors.New("index service not configured")
		}
		n, err := services.Index.IndexRules(cmd.Context())
		if err != nil {
			return fmt.Errorf("index rules failed: %w", err)
		}
		cmd.Printf("Indexed %d rules.\n", n)
		return nil
	},
}

var indexOntologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Index stored ontology terms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if services == nil || services.Index == nil {
			return errors.New("index service not configured")
		}
		n, err := services.Index.IndexOntology(cmd.Context())
		if err != nil {
			return fmt.Errorf("index ontology failed: %w", err)
		}
		cmd.Printf("Indexed %d ontology terms.\n", n)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexRulesCmd, indexOntologyCmd)
	rootCmd.AddCommand(indexCmd)
}
