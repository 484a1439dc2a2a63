package tools

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/epopbench/epop-eval/pkg/epop/loaders"
	"github.com/epopbench/epop-eval/pkg/epop/metrics"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/util"
)

func RegisterCorpusTool(s *server.MCPServer) {
	tool := mcp.NewTool("corpus_stats",
		mcp.WithDescription("Profiles a gold corpus: per-document sentence, token, entity, relation and coreference-chain counts, with corpus totals. Useful for checking a corpus before running an evaluation."),
		mcp.WithString("gold_dir",
			mcp.Required(),
			mcp.Description("Directory containing gold annotation files, one <doc-id>.json per document"),
		),
		mcp.WithString("text_dir",
			mcp.Required(),
			mcp.Description("Directory containing document texts, one <doc-id>.txt per document"),
		),
	)

	s.AddTool(tool, util.ErrorGuard(corpusStatsHandler))
}

func corpusStatsHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	goldDir, ok := arguments["gold_dir"].(string)
	if !ok {
		return nil, fmt.Errorf("gold_dir argument is required")
	}
	textDir, ok := arguments["text_dir"].(string)
	if !ok {
		return nil, fmt.Errorf("text_dir argument is required")
	}

	corpus, rejected, err := loaders.NewGoldLoader().LoadDir(goldDir, textDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading gold corpus: %s", err)), nil
	}
	metrics.ObserveCorpus("gold", corpus)

	header := []string{"document", "sentences", "tokens", "entities", "relations", "chains"}
	cells := make([][]string, 0, corpus.Len())
	totals := [5]int{}

	for _, doc := range corpus.Documents() {
		sentences, tokens, err := textStats(doc.Text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("tokenizing %s: %s", doc.ID, err)), nil
		}

		row := [5]int{sentences, tokens, len(doc.Entities), len(doc.Relations), len(doc.Chains)}
		for i, v := range row {
			totals[i] += v
		}
		cells = append(cells, statRow(doc.ID, row))
	}
	cells = append(cells, statRow("TOTAL", totals))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Corpus statistics (%d documents)\n\n", corpus.Len())
	if err := report.WriteMatrix(&sb, header, cells); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	appendLoadErrors(&sb, "Rejected documents", rejected)

	return mcp.NewToolResultText(sb.String()), nil
}

func statRow(id string, values [5]int) []string {
	row := []string{id}
	for _, v := range values {
		row = append(row, fmt.Sprintf("%d", v))
	}
	return row
}

func textStats(text string) (sentences, tokens int, err error) {
	doc, err := prose.NewDocument(text, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		return 0, 0, err
	}
	return len(doc.Sentences()), len(doc.Tokens()), nil
}
