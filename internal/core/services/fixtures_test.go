package services

import (
	"github.com/custodia-labs/ontomap/internal/core/domain"
)

func treatment(id, name, typ, source string) domain.SourceRecord {
	return domain.NewSourceRecord(id, domain.KindTreatment,
		domain.Attribute{Key: "treatment_name", Value: name},
		domain.Attribute{Key: "treatment_type", Value: typ},
		domain.Attribute{Key: "data_source", Value: source},
	)
}

func diagnosis(id, name, site string) domain.SourceRecord {
	return domain.NewSourceRecord(id, domain.KindDiagnosis,
		domain.Attribute{Key: "diagnosis", Value: name},
		domain.Attribute{Key: "primary_site", Value: site},
		domain.Attribute{Key: "tumour_type", Value: "primary"},
		domain.Attribute{Key: "data_source", Value: "pdx"},
	)
}

func mappedRule(r domain.SourceRecord, url, label string) domain.Rule {
	return domain.Rule{
		Record:          r,
		Status:          domain.RuleMapped,
		MappedTermURL:   url,
		MappedTermLabel: label,
		MappedBy:        domain.MappedByCurator,
	}
}

func clausesOf(q domain.Query, family domain.SourceKind) []domain.Clause {
	for _, f := range q.Families {
		if f.Name == family {
			return f.Clauses
		}
	}
	return nil
}

func familyOf(q domain.Query, family domain.SourceKind) *domain.Family {
	for i := range q.Families {
		if q.Families[i].Name == family {
			return &q.Families[i]
		}
	}
	return nil
}
