package eval

import (
	"fmt"
	"runtime"

	"github.com/epopbench/epop-eval/pkg/epop/align"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/score"
)

// Config tunes a corpus evaluation run. Validation happens before any
// document is touched; a bad config never produces a partial report.
type Config struct {
	// EntityOverlapThreshold is the minimum overlap score for an entity
	// pair to become an alignment candidate, inclusive.
	EntityOverlapThreshold float64 `json:"entity_overlap_threshold"`
	// OverlapScorer is "iou" for character spans or "name" for token
	// similarity over mentions.
	OverlapScorer string `json:"overlap_scorer"`
	// CorefPartialCredit scores coreference with B-cubed instead of
	// whole-chain matching.
	CorefPartialCredit bool `json:"coref_partial_credit"`
	// CorefAwareRelations lets relation arguments match through gold
	// coreference chains.
	CorefAwareRelations bool `json:"coref_aware_relations"`
	// LinkingCaseSensitive compares linking identifiers exactly.
	LinkingCaseSensitive bool `json:"linking_case_sensitive"`
	// Workers caps concurrent document evaluations; 0 means NumCPU.
	Workers int `json:"workers"`
}

// DefaultConfig returns the standard evaluation configuration.
func DefaultConfig() Config {
	return Config{
		EntityOverlapThreshold: 0.5,
		OverlapScorer:          string(align.ScorerIoU),
		CorefPartialCredit:     true,
		CorefAwareRelations:    true,
		LinkingCaseSensitive:   true,
		Workers:                runtime.NumCPU(),
	}
}

// ConfigError reports an unusable configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Validate checks every field and returns a ConfigError on the first
// violation.
func (c Config) Validate() error {
	if c.EntityOverlapThreshold < 0 || c.EntityOverlapThreshold > 1 {
		return &ConfigError{Field: "entity_overlap_threshold",
			Reason: fmt.Sprintf("must be within [0,1], got %g", c.EntityOverlapThreshold)}
	}
	switch align.ScorerKind(c.OverlapScorer) {
	case align.ScorerIoU, align.ScorerName:
	default:
		return &ConfigError{Field: "overlap_scorer",
			Reason: fmt.Sprintf("must be %q or %q, got %q", align.ScorerIoU, align.ScorerName, c.OverlapScorer)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers",
			Reason: fmt.Sprintf("must not be negative, got %d", c.Workers)}
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

func (c Config) alignOptions() align.Options {
	return align.Options{
		Threshold:           c.EntityOverlapThreshold,
		Scorer:              align.ScorerKind(c.OverlapScorer),
		CorefAwareArguments: c.CorefAwareRelations,
	}
}

func (c Config) scoreOptions() score.Options {
	return score.Options{
		CorefPartialCredit:   c.CorefPartialCredit,
		LinkingCaseSensitive: c.LinkingCaseSensitive,
	}
}

// Settings echoes the config into the report.
func (c Config) Settings() report.Settings {
	return report.Settings{
		EntityOverlapThreshold: c.EntityOverlapThreshold,
		OverlapScorer:          c.OverlapScorer,
		CorefPartialCredit:     c.CorefPartialCredit,
		CorefAwareRelations:    c.CorefAwareRelations,
		LinkingCaseSensitive:   c.LinkingCaseSensitive,
	}
}
