package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

var (
	ontologyTypes  []string
	ontologyReload bool
	ontologyJSON   bool
	normalizeType  string
)

var ontologyCmd = &cobra.Command{
	Use:   "ontology",
	Short: "Ontology crawl commands",
	Long:  `Commands for loading ontology terms from the remote hierarchy service.`,
}

var ontologyLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load ontology terms",
	Long: `Crawls the configured root branches and stores every descendant term.
An interrupted load resumes from its pending frontier on the next run.
Use --reload to discard stored terms of the selected types and start over.`,
	Args: cobra.NoArgs,
	RunE: runOntologyLoad,
}

var ontologyNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Re-apply label and synonym post-processing to stored terms",
	Args:  cobra.NoArgs,
	RunE:  runOntologyNormalize,
}

var ontologyFrontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "List pending crawl entries",
	Args:  cobra.NoArgs,
	RunE:  runOntologyFrontier,
}

func init() {
	ontologyLoadCmd.Flags().StringSliceVarP(&ontologyTypes, "type", "t", nil, "term types to load (diagnosis, treatment, regimen)")
	ontologyLoadCmd.Flags().BoolVar(&ontologyReload, "reload", false, "delete stored terms of the selected types first")
	ontologyLoadCmd.Flags().BoolVar(&ontologyJSON, "json", false, "output the report as JSON")

	ontologyNormalizeCmd.Flags().StringVarP(&normalizeType, "type", "t", "", "term type to normalize")
	_ = ontologyNormalizeCmd.MarkFlagRequired("type")

	ontologyFrontierCmd.Flags().BoolVar(&ontologyJSON, "json", false, "output entries as JSON")

	ontologyCmd.AddCommand(ontologyLoadCmd, ontologyNormalizeCmd, ontologyFrontierCmd)
	rootCmd.AddCommand(ontologyCmd)
}

func runOntologyLoad(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Ontology == nil {
		return errors.New("ontology loader not configured")
	}

	opts := domain.LoadOptions{Reload: ontologyReload}
	for _, s := range ontologyTypes {
		t, err := domain.ParseTermType(s)
		if err != nil {
			return fmt.Errorf("%w: %q", err, s)
		}
		opts.Types = append(opts.Types, t)
	}

	report, err := services.Ontology.Load(cmd.Context(), opts)
	if report != nil {
		if ontologyJSON {
			if jerr := printJSON(cmd, report); jerr != nil {
				return jerr
			}
		} else {
			printLoadReport(cmd, report)
		}
	}
	if err != nil {
		return fmt.Errorf("ontology load failed: %w", err)
	}
	return nil
}

func printLoadReport(cmd *cobra.Command, r *domain.LoadReport) {
	cmd.Printf("Run %s: processed %d entries, %d failed, %d exhausted.\n", r.RunID, r.Processed, r.Failed, r.Exhausted)
	for _, t := range r.LoadedTypes() {
		cmd.Printf("  %s: %d new terms\n", t, r.Loaded[t])
	}
	if r.Resumed {
		cmd.Println("Resumed from a pending frontier.")
	}
	if r.Interrupted {
		cmd.Println("Interrupted; run again to resume.")
	}
	if len(r.Errors) > 0 {
		cmd.Printf("%d errors:\n", len(r.Errors))
		for _, e := range r.Errors {
			cmd.Printf("  %s\n", e)
		}
	}
}

func runOntologyNormalize(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Ontology == nil {
		return errors.New("ontology loader not configured")
	}
	t, err := domain.ParseTermType(normalizeType)
	if err != nil {
		return fmt.Errorf("%w: %q", err, normalizeType)
	}

	n, err := services.Ontology.Normalize(cmd.Context(), t)
	if err != nil {
		return fmt.Errorf("normalize failed: %w", err)
	}
	cmd.Printf("Normalized %d %s terms.\n", n, t)
	return nil
}

func runOntologyFrontier(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Ontology == nil {
		return errors.New("ontology loader not configured")
	}

	entries, err := services.Ontology.Frontier(cmd.Context())
	if err != nil {
		return fmt.Errorf("list frontier failed: %w", err)
	}
	if ontologyJSON {
		return printJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("Frontier is empty.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("  %-10s attempts=%d %s\n", e.Type, e.Attempts, e.URL)
		if e.LastError != "" {
			cmd.Printf("             last error: %s\n", e.LastError)
		}
	}
	return nil
}
