package loaders

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop"
)

var (
	documentsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_documents_loaded_total",
			Help: "Documents loaded into memory",
		},
		[]string{"source"},
	)

	documentsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corpus_load_errors_total",
			Help: "Documents rejected at load time",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(documentsLoaded)
	prometheus.MustRegister(documentsRejected)
}

// GoldLoader reads gold annotation files from a corpus release.
type GoldLoader struct {
	logger *logrus.Logger
}

// NewGoldLoader creates a loader for gold annotations.
func NewGoldLoader() *GoldLoader {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &GoldLoader{logger: logger}
}

// Load parses one document's gold annotations. The release format is strict
// JSON; a syntax error here means a broken release and fails the run.
func (l *GoldLoader) Load(docID, text string, raw []byte) (*epop.Document, error) {
	var set annotationSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, errors.Wrapf(err, "gold annotations for %s", docID)
	}
	if text == "" {
		text = set.Text
	}
	return buildDocument(docID, text, &set, false)
}

// LoadDir loads every *.json annotation file under annDir. Raw text comes
// from <textDir>/<id>.txt when present, else from the annotation file
// itself. Documents rejected by validation are skipped; the run continues.
func (l *GoldLoader) LoadDir(annDir, textDir string) (*epop.Corpus, []*epop.LoadError, error) {
	paths, err := filepath.Glob(filepath.Join(annDir, "*.json"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listing annotations under %s", annDir)
	}
	sort.Strings(paths)

	corpus := epop.NewCorpus()
	skipped := make([]*epop.LoadError, 0)

	for _, path := range paths {
		docID := strings.TrimSuffix(filepath.Base(path), ".json")

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", path)
		}

		text := ""
		if textDir != "" {
			if b, err := os.ReadFile(filepath.Join(textDir, docID+".txt")); err == nil {
				text = string(b)
			}
		}

		doc, err := l.Load(docID, text, raw)
		if err != nil {
			if le, ok := epop.AsLoadError(err); ok {
				documentsRejected.WithLabelValues(string(le.Kind)).Inc()
				l.logger.WithFields(logrus.Fields{
					"document": le.DocumentID,
					"kind":     le.Kind,
					"detail":   le.Detail,
				}).Warn("Skipping document with invalid gold annotations")
				skipped = append(skipped, le)
				continue
			}
			return nil, nil, err
		}

		if err := corpus.Add(doc); err != nil {
			return nil, nil, errors.Wrap(err, "assembling gold corpus")
		}
		documentsLoaded.WithLabelValues("gold").Inc()
	}

	l.logger.WithFields(logrus.Fields{
		"documents": corpus.Len(),
		"skipped":   len(skipped),
	}).Info("Gold corpus loaded")

	return corpus, skipped, nil
}

// buildDocument converts a wire annotation set into a validated document.
// In lenient mode (model output) missing IDs are synthesized, wrapping
// quotes are stripped from mentions, and a missing span falls back to the
// first case-insensitive occurrence of the mention in the text.
func buildDocument(docID, text string, set *annotationSet, lenient bool) (*epop.Document, error) {
	doc := &epop.Document{ID: docID, Text: text}

	for i, rec := range set.Entities {
		id := rec.ID
		if id == "" && lenient {
			id = synthesizedID("PE", i, set.Entities)
		}

		typ, ok := epop.ParseEntityType(rec.Type)
		if !ok {
			return nil, epop.NewLoadError(epop.UnknownTypeTag, docID, "entity %s has unknown type %q", id, rec.Type)
		}

		mention := rec.Text
		if lenient {
			mention = stripQuotes(mention)
			if mention == "" {
				mention = stripQuotes(rec.Name)
			}
		}

		var span epop.Span
		switch {
		case rec.Start != nil && rec.End != nil:
			span = epop.Span{Start: *rec.Start, End: *rec.End}
		case lenient:
			start := indexFold(text, mention)
			if mention == "" || start < 0 {
				return nil, epop.NewLoadError(epop.MalformedSpan, docID,
					"entity %s has no offsets and mention %q does not occur in the text", id, mention)
			}
			span = epop.Span{Start: start, End: start + len(mention)}
		default:
			return nil, epop.NewLoadError(epop.MalformedSpan, docID, "entity %s has no offsets", id)
		}

		if mention == "" && span.In(len(text)) {
			mention = text[span.Start:span.End]
		}

		doc.Entities = append(doc.Entities, epop.Entity{
			ID:      id,
			Type:    typ,
			Span:    span,
			Mention: mention,
			Linking: rec.linking(),
		})
	}

	entityIDs := make(map[string]bool, len(doc.Entities))
	for _, e := range doc.Entities {
		entityIDs[e.ID] = true
	}
	relationIDs := make(map[string]bool, len(set.Relationships))
	for i, rec := range set.Relationships {
		id := rec.ID
		if id == "" && lenient {
			id = synthesizedID("PR", i, nil)
		}
		relationIDs[id] = true
	}

	for i, rec := range set.Relationships {
		id := rec.ID
		if id == "" && lenient {
			id = synthesizedID("PR", i, nil)
		}

		typ, ok := epop.ParseRelationType(rec.Type)
		if !ok {
			return nil, epop.NewLoadError(epop.UnknownTypeTag, docID, "relation %s has unknown type %q", id, rec.Type)
		}
		modality, ok := epop.ParseModality(rec.Modality)
		if !ok {
			return nil, epop.NewLoadError(epop.UnknownTypeTag, docID, "relation %s has unknown modality %q", id, rec.Modality)
		}

		roles := make([]string, 0, len(rec.Arguments))
		for role := range rec.Arguments {
			roles = append(roles, role)
		}
		sort.Strings(roles)

		args := make([]epop.Argument, 0, len(roles))
		for _, role := range roles {
			for _, ref := range rec.Arguments[role] {
				arg := epop.Argument{Role: role}
				// entity references take precedence when an ID is ambiguous
				if entityIDs[ref] || !relationIDs[ref] {
					arg.Entity = ref
				} else {
					arg.Relation = ref
				}
				args = append(args, arg)
			}
		}

		doc.Relations = append(doc.Relations, epop.Relation{
			ID:        id,
			Type:      typ,
			Modality:  modality,
			Arguments: args,
		})
	}

	for i, members := range set.Equivalences {
		doc.Chains = append(doc.Chains, epop.Chain{
			ID:      synthesizedID("C", i, nil),
			Members: members,
		})
	}

	if err := doc.Index(); err != nil {
		return nil, err
	}
	return doc, nil
}

// synthesizedID returns prefix plus ordinal, stepping past IDs the record
// list already uses.
func synthesizedID(prefix string, i int, taken []entityRecord) string {
	used := make(map[string]bool, len(taken))
	for _, rec := range taken {
		used[rec.ID] = true
	}
	for n := i + 1; ; n++ {
		id := prefix + strconv.Itoa(n)
		if !used[id] {
			return id
		}
	}
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// indexFold finds the first case-insensitive occurrence of needle.
func indexFold(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}

func (r *entityRecord) linking() *epop.Linking {
	switch {
	case r.NCBITaxonomy != "":
		return &epop.Linking{Authority: epop.AuthorityNCBITaxonomy, Value: r.NCBITaxonomy}
	case r.GeoNames != "":
		return &epop.Linking{Authority: epop.AuthorityGeoNames, Value: r.GeoNames}
	case r.OntoBiotope != "":
		return &epop.Linking{Authority: epop.AuthorityOntoBiotope, Value: r.OntoBiotope}
	case r.Name != "":
		return &epop.Linking{Authority: epop.AuthorityName, Value: r.Name}
	}
	return nil
}
