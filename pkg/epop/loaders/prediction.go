package loaders

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/epopbench/epop-eval/pkg/epop"
)

var (
	codeFence      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommas = regexp.MustCompile(`,(\s*[}\]])`)
)

// CleanRawOutput extracts the JSON payload from raw model output: code
// fences stripped, trailing commas removed.
func CleanRawOutput(raw string) string {
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	raw = trailingCommas.ReplaceAllString(raw, "$1")
	return strings.TrimSpace(raw)
}

// PredictionLoader parses raw model output into annotation sets, tolerating
// the usual formatting defects. Validation stays as strict as for gold:
// a prediction that violates the schema rejects the whole document.
type PredictionLoader struct {
	logger *logrus.Logger
}

// NewPredictionLoader creates a loader for model output.
func NewPredictionLoader() *PredictionLoader {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &PredictionLoader{logger: logger}
}

// Load parses one document's predicted annotations against the document
// text the gold side provides. Output that contains no recognizable
// annotation set loads as an empty prediction rather than failing.
func (l *PredictionLoader) Load(docID, text string, raw []byte) (*epop.Document, error) {
	set := parsePrediction(CleanRawOutput(string(raw)))
	doc, err := buildDocument(docID, text, set, true)
	if err != nil {
		return nil, err
	}
	documentsLoaded.WithLabelValues("prediction").Inc()
	return doc, nil
}

// LoadDir loads one prediction file per document (<id>.json or <id>.txt)
// from dir, taking document text from the gold corpus. Rejected documents
// are skipped and reported; the run continues.
func (l *PredictionLoader) LoadDir(dir string, gold *epop.Corpus) (*epop.Corpus, []*epop.LoadError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listing predictions under %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".json" || ext == ".txt" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	corpus := epop.NewCorpus()
	skipped := make([]*epop.LoadError, 0)

	for _, name := range names {
		docID := strings.TrimSuffix(name, filepath.Ext(name))
		if _, ok := corpus.Get(docID); ok {
			continue // .json already loaded for this document
		}

		text := ""
		if goldDoc, ok := gold.Get(docID); ok {
			text = goldDoc.Text
		} else {
			l.logger.WithField("document", docID).Warn("Prediction has no gold counterpart")
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", name)
		}

		doc, err := l.Load(docID, text, raw)
		if err != nil {
			if le, ok := epop.AsLoadError(err); ok {
				documentsRejected.WithLabelValues(string(le.Kind)).Inc()
				l.logger.WithFields(logrus.Fields{
					"document": le.DocumentID,
					"kind":     le.Kind,
					"detail":   le.Detail,
				}).Warn("Skipping document with invalid predictions")
				skipped = append(skipped, le)
				continue
			}
			return nil, nil, err
		}

		if err := corpus.Add(doc); err != nil {
			return nil, nil, errors.Wrap(err, "assembling prediction corpus")
		}
	}

	return corpus, skipped, nil
}

// parsePrediction walks whatever JSON the model produced. A top-level list
// of fragments is squashed into one annotation set.
func parsePrediction(clean string) *annotationSet {
	set := &annotationSet{}

	root := gjson.Parse(clean)
	fragments := []gjson.Result{root}
	if root.IsArray() {
		fragments = root.Array()
	}

	for _, frag := range fragments {
		frag.Get("entities").ForEach(func(_, e gjson.Result) bool {
			set.Entities = append(set.Entities, entityFromJSON(e))
			return true
		})

		rels := frag.Get("relationships")
		if !rels.Exists() {
			rels = frag.Get("relations")
		}
		rels.ForEach(func(_, r gjson.Result) bool {
			set.Relationships = append(set.Relationships, relationFromJSON(r))
			return true
		})

		frag.Get("equivalences").ForEach(func(_, group gjson.Result) bool {
			members := make([]string, 0)
			group.ForEach(func(_, m gjson.Result) bool {
				members = append(members, m.String())
				return true
			})
			if len(members) > 0 {
				set.Equivalences = append(set.Equivalences, members)
			}
			return true
		})
	}

	return set
}

func entityFromJSON(e gjson.Result) entityRecord {
	rec := entityRecord{
		ID:           e.Get("id").String(),
		Type:         e.Get("type").String(),
		Text:         e.Get("text").String(),
		NCBITaxonomy: e.Get("NCBI_Taxonomy").String(),
		GeoNames:     e.Get("GeoNames").String(),
		OntoBiotope:  e.Get("OntoBiotope").String(),
		Name:         e.Get("name").String(),
	}
	if rec.Text == "" {
		rec.Text = e.Get("mention").String()
	}
	if start := e.Get("start"); start.Exists() {
		if end := e.Get("end"); end.Exists() {
			s, en := int(start.Int()), int(end.Int())
			rec.Start, rec.End = &s, &en
		}
	}
	return rec
}

func relationFromJSON(r gjson.Result) relationRecord {
	rec := relationRecord{
		ID:        r.Get("id").String(),
		Type:      r.Get("type").String(),
		Modality:  r.Get("modality").String(),
		Arguments: argumentMap{},
	}

	args := r.Get("arguments")
	if args.IsObject() {
		args.ForEach(func(role, val gjson.Result) bool {
			rec.Arguments[role.String()] = refsFromJSON(val)
			return true
		})
		return rec
	}

	// some models flatten the roles onto the relation object itself
	if typ, ok := epop.ParseRelationType(rec.Type); ok {
		for _, slot := range epop.Signature(typ) {
			if val := r.Get(slot.Role); val.Exists() {
				rec.Arguments[slot.Role] = refsFromJSON(val)
			}
		}
	}
	return rec
}

func refsFromJSON(val gjson.Result) multiRef {
	if val.IsArray() {
		refs := make(multiRef, 0)
		val.ForEach(func(_, v gjson.Result) bool {
			refs = append(refs, v.String())
			return true
		})
		return refs
	}
	return multiRef{val.String()}
}
