package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityKind(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityKind
		wantErr bool
	}{
		{"treatment", KindTreatment, false},
		{" Diagnosis ", KindDiagnosis, false},
		{"sample", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntityKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceRecord_Value(t *testing.T) {
	r := NewSourceRecord("p-1", KindTreatment,
		Attribute{Key: "treatment_name", Value: "Cisplatin"},
		Attribute{Key: "data_source", Value: "PDX-A"},
	)

	v, ok := r.Value("treatment_name")
	assert.True(t, ok)
	assert.Equal(t, "Cisplatin", v)

	_, ok = r.Value("treatment_type")
	assert.False(t, ok)
}

// TestSourceRecord_Key tests the content hash identity
func TestSourceRecord_Key(t *testing.T) {
	a := NewSourceRecord("p-1", KindTreatment,
		Attribute{Key: "treatment_name", Value: "Cisplatin"},
		Attribute{Key: "data_source", Value: "PDX-A"},
	)
	b := NewSourceRecord("p-2", KindTreatment,
		Attribute{Key: "data_source", Value: "pdx-a"},
		Attribute{Key: "treatment_name", Value: "  CISPLATIN "},
	)
	c := NewSourceRecord("p-1", KindDiagnosis,
		Attribute{Key: "treatment_name", Value: "Cisplatin"},
		Attribute{Key: "data_source", Value: "PDX-A"},
	)

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, a.Key(), a.Key())
		assert.Len(t, a.Key(), 64)
	})

	t.Run("ignores id, order and case", func(t *testing.T) {
		assert.Equal(t, a.Key(), b.Key())
	})

	t.Run("depends on kind", func(t *testing.T) {
		assert.NotEqual(t, a.Key(), c.Key())
	})
}

func TestRule_IsMapped(t *testing.T) {
	rec := NewSourceRecord("p-1", KindTreatment, Attribute{Key: "treatment_name", Value: "x"})

	assert.False(t, Rule{Record: rec, Status: RuleUnmapped}.IsMapped())
	assert.False(t, Rule{Record: rec, Status: RuleMapped}.IsMapped())
	assert.True(t, Rule{Record: rec, Status: RuleMapped, MappedTermURL: "http://x"}.IsMapped())
	assert.Equal(t, rec.Key(), Rule{Record: rec}.Key())
}
