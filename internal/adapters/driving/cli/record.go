package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// recordFlags are the flags shared by commands that take one source record.
type recordFlags struct {
	id    string
	kind  string
	attrs []string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "cli", "provider identifier of the record")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", string(domain.KindTreatment), "entity kind (treatment, diagnosis)")
	cmd.Flags().StringArrayVarP(&f.attrs, "attr", "a", nil, "attribute as key=value (repeatable)")
}

// record builds a SourceRecord preserving attribute order.
func (f *recordFlags) record() (domain.SourceRecord, error) {
	kind, err := domain.ParseEntityKind(f.kind)
	if err != nil {
		return domain.SourceRecord{}, fmt.Errorf("%w: %q", err, f.kind)
	}
	if len(f.attrs) == 0 {
		return domain.SourceRecord{}, fmt.Errorf("%w: at least one --attr is required", domain.ErrInvalidInput)
	}

	attrs := make([]domain.Attribute, 0, len(f.attrs))
	for _, a := range f.attrs {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return domain.SourceRecord{}, fmt.Errorf("%w: attribute %q must be key=value", domain.ErrInvalidInput, a)
		}
		attrs = append(attrs, domain.Attribute{Key: key, Value: value})
	}
	return domain.NewSourceRecord(f.id, kind, attrs...), nil
}
