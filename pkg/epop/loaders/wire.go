package loaders

import (
	"encoding/json"
	"fmt"
)

// annotationSet mirrors one document's annotations in the corpus release
// format: flat entity records, role-keyed relation records and equivalence
// groups for coreference.
type annotationSet struct {
	ID            string           `json:"id,omitempty"`
	Text          string           `json:"text,omitempty"`
	Entities      []entityRecord   `json:"entities"`
	Relationships []relationRecord `json:"relationships"`
	Equivalences  [][]string       `json:"equivalences,omitempty"`
}

// entityRecord is one mention. Linking identifiers travel as flat registry
// keys on the record; the first registry present in canonical order wins.
type entityRecord struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Start        *int   `json:"start,omitempty"`
	End          *int   `json:"end,omitempty"`
	Text         string `json:"text,omitempty"`
	NCBITaxonomy string `json:"NCBI_Taxonomy,omitempty"`
	GeoNames     string `json:"GeoNames,omitempty"`
	OntoBiotope  string `json:"OntoBiotope,omitempty"`
	Name         string `json:"name,omitempty"`
}

// relationRecord is one relation with role-keyed arguments. A repeatable
// role may carry a list of references.
type relationRecord struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Modality  string      `json:"modality,omitempty"`
	Arguments argumentMap `json:"arguments"`
}

type argumentMap map[string]multiRef

// multiRef accepts both "T1" and ["T1", "T2"] as argument values.
type multiRef []string

func (m *multiRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var refs []string
		if err := json.Unmarshal(b, &refs); err != nil {
			return err
		}
		*m = refs
		return nil
	}
	var ref string
	if err := json.Unmarshal(b, &ref); err != nil {
		return fmt.Errorf("argument reference must be a string or list of strings: %w", err)
	}
	*m = []string{ref}
	return nil
}

func (m multiRef) MarshalJSON() ([]byte, error) {
	if len(m) == 1 {
		return json.Marshal(m[0])
	}
	return json.Marshal([]string(m))
}
