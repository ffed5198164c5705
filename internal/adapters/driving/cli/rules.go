package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Curated rule commands",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Import curated rules from a JSON file",
	Long: `Imports a JSON array of rules. Each rule holds a record and, when curated,
the mapped term:

  [{"record": {"id": "p1", "kind": "treatment",
               "attributes": [{"key": "treatment_name", "value": "Cisplatin"}]},
    "mapped_term_url": "http://purl.obolibrary.org/obo/NCIT_C376",
    "mapped_term_label": "Cisplatin"}]

Run "ontomap index rules" afterwards to make mapped rules searchable.`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesImport,
}

var rulesGetCmd = &cobra.Command{
	Use:   "get [record-key]",
	Short: "Show a stored rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if services == nil || services.Rules == nil {
			return errors.New("rule service not configured")
		}
		rule, err := services.Rules.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get rule failed: %w", err)
		}
		return printJSON(cmd, rule)
	},
}

func init() {
	rulesCmd.AddCommand(rulesImportCmd, rulesGetCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	if services == nil || services.Rules == nil {
		return errors.New("rule service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read rules: %w", err)
	}
	var rules []domain.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, args[0], err)
	}

	n, err := services.Rules.Import(cmd.Context(), rules)
	if err != nil {
		return fmt.Errorf("import stopped after %d rules: %w", n, err)
	}
	cmd.Printf("Imported %d rules.\n", n)
	return nil
}
