package experiment_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/experiment"
)

const docText = "Xylella fastidiosa causes olive quick decline syndrome. The bacterium spreads in Apulia."

const goldJSON = `{
  "entities": [
    {"id": "T1", "type": "Organism", "start": 0, "end": 18, "text": "Xylella fastidiosa"},
    {"id": "T2", "type": "Disease", "start": 26, "end": 54}
  ],
  "relationships": [
    {"id": "R1", "type": "Causes", "arguments": {"cause": "T1", "effect": "T2"}}
  ]
}`

const perfectOutput = `{
  "entities": [
    {"id": "P1", "type": "Organism", "start": 0, "end": 18, "text": "Xylella fastidiosa"},
    {"id": "P2", "type": "Disease", "start": 26, "end": 54, "text": "olive quick decline syndrome"}
  ],
  "relationships": [
    {"id": "PR1", "type": "Causes", "arguments": {"cause": "P1", "effect": "P2"}}
  ]
}`

const malformedOutput = `{
  "entities": [
    {"id": "P1", "type": "Pathogen", "start": 0, "end": 18, "text": "Xylella fastidiosa"}
  ]
}`

type fixture struct {
	goldDir, textDir, outputRoot string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{goldDir: t.TempDir(), textDir: t.TempDir(), outputRoot: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(f.goldDir, "doc-a.json"), []byte(goldJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.textDir, "doc-a.txt"), []byte(docText), 0o644))
	return f
}

func (f fixture) writeRep(t *testing.T, modelDir, docID string, repeat int, output string) {
	t.Helper()
	dir := filepath.Join(f.outputRoot, modelDir, docID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, strconv.Itoa(repeat)+".txt"), []byte(output), 0o644))
}

func (f fixture) spec(repeats int, models ...experiment.Model) experiment.Spec {
	return experiment.Spec{
		GoldDir:    f.goldDir,
		TextDir:    f.textDir,
		OutputRoot: f.outputRoot,
		Models:     models,
		Repeats:    repeats,
		Config:     eval.DefaultConfig(),
	}
}

func TestNewRunnerValidatesSpec(t *testing.T) {
	f := newFixture(t)

	_, err := experiment.NewRunner(f.spec(3))
	assert.Error(t, err, "no models")

	_, err = experiment.NewRunner(f.spec(0, experiment.Model{Name: "m", OutputDir: "m"}))
	assert.Error(t, err, "no repetitions")

	bad := f.spec(3, experiment.Model{Name: "m", OutputDir: "m"})
	bad.Config.OverlapScorer = "levenshtein"
	_, err = experiment.NewRunner(bad)
	var cfgErr *eval.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunMediansPerModel(t *testing.T) {
	f := newFixture(t)

	// metadata listings next to the documents never become documents
	require.NoError(t, os.WriteFile(filepath.Join(f.textDir, "documents-metadata.txt"), []byte("name\tsize"), 0o644))

	// a document rejected at gold load is skipped for every model
	badGold := `{"entities": [{"id": "T1", "type": "Organism", "start": 0, "end": 9999}]}`
	require.NoError(t, os.WriteFile(filepath.Join(f.goldDir, "doc-bad.json"), []byte(badGold), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.textDir, "doc-bad.txt"), []byte("short"), 0o644))

	models := []experiment.Model{
		{Name: "good", OutputDir: "good-v1"},
		{Name: "mixed", OutputDir: "mixed-v1"},
		{Name: "flaky", OutputDir: "flaky-v1"},
	}
	for repeat := 1; repeat <= 3; repeat++ {
		f.writeRep(t, "good-v1", "doc-a", repeat, perfectOutput)
		f.writeRep(t, "good-v1", "doc-bad", repeat, perfectOutput)
		f.writeRep(t, "mixed-v1", "doc-bad", repeat, perfectOutput)
		f.writeRep(t, "flaky-v1", "doc-bad", repeat, perfectOutput)
	}
	f.writeRep(t, "mixed-v1", "doc-a", 1, perfectOutput)
	f.writeRep(t, "mixed-v1", "doc-a", 2, `{}`)
	f.writeRep(t, "mixed-v1", "doc-a", 3, "Sorry, I could not process this document.")
	f.writeRep(t, "flaky-v1", "doc-a", 1, perfectOutput)
	f.writeRep(t, "flaky-v1", "doc-a", 2, malformedOutput)
	f.writeRep(t, "flaky-v1", "doc-a", 3, perfectOutput)

	runner, err := experiment.NewRunner(f.spec(3, models...))
	require.NoError(t, err)

	matrix, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-a"}, matrix.Documents(), "the rejected document has no row")

	good, ok := matrix.Get("doc-a", "good")
	require.True(t, ok)
	assert.InDelta(t, 1.0, good, 1e-9)

	mixed, ok := matrix.Get("doc-a", "mixed")
	require.True(t, ok)
	assert.InDelta(t, 0.0, mixed, 1e-9, "two zero repetitions outweigh one perfect one")

	flaky, ok := matrix.Get("doc-a", "flaky")
	require.True(t, ok)
	assert.InDelta(t, 1.0, flaky, 1e-9, "one malformed repetition scores zero but cannot sink the median")
}

func TestRunEvenRepeatsTakeUpperMiddle(t *testing.T) {
	f := newFixture(t)
	f.writeRep(t, "m-v1", "doc-a", 1, `{}`)
	f.writeRep(t, "m-v1", "doc-a", 2, perfectOutput)

	runner, err := experiment.NewRunner(f.spec(2, experiment.Model{Name: "m", OutputDir: "m-v1"}))
	require.NoError(t, err)

	matrix, err := runner.Run(context.Background())
	require.NoError(t, err)

	score, ok := matrix.Get("doc-a", "m")
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestRunFailsOnMissingRepetition(t *testing.T) {
	f := newFixture(t)
	f.writeRep(t, "m-v1", "doc-a", 1, perfectOutput)

	runner, err := experiment.NewRunner(f.spec(2, experiment.Model{Name: "m", OutputDir: "m-v1"}))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repetition 2")
}

func TestMatrixTSV(t *testing.T) {
	matrix := experiment.NewMatrix([]string{"m1", "m2"})
	matrix.Set("doc-b", "m1", 0.5)
	matrix.Set("doc-b", "m2", 0.25)
	matrix.Set("doc-a", "m1", 1)
	matrix.Set("doc-a", "m2", 0)

	want := "document\tm1\tm2\n" +
		"doc-a\t1.0000\t0.0000\n" +
		"doc-b\t0.5000\t0.2500\n"
	assert.Equal(t, want, matrix.String())
}
